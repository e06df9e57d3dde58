package fetch

import (
	"sort"

	"NewsCurator/internal/domain"
)

// Select groups ranked articles by cluster and keeps the best perCluster of each.
// Clusters are emitted strongest first.
func Select(ranked []domain.Article, perCluster int) []domain.Article {
	if perCluster <= 0 {
		return nil
	}

	groups := make(map[string][]domain.Article)
	var order []string
	for _, article := range ranked {
		if _, ok := groups[article.ClusterID]; !ok {
			order = append(order, article.ClusterID)
		}
		groups[article.ClusterID] = append(groups[article.ClusterID], article)
	}

	for _, id := range order {
		members := groups[id]
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].InterestScore > members[j].InterestScore
		})
		if len(members) > perCluster {
			groups[id] = members[:perCluster]
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return groups[order[i]][0].InterestScore > groups[order[j]][0].InterestScore
	})

	var selected []domain.Article
	for _, id := range order {
		selected = append(selected, groups[id]...)
	}
	return selected
}

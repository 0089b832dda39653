package plot

import "math"

// clusterOrder returns labels in the leaf order of an average-linkage
// agglomerative clustering of vectors on euclidean distance. Merged clusters
// are concatenated in merge order, so the leaves are grouped like a
// dendrogram but their order can differ from scipy's dendrogram ordering.
func clusterOrder(labels []string, vectors [][]float64) []string {
	var n = len(labels)
	if n < 3 {
		return labels
	}

	var dist = make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			dist[i][j] = euclidean(vectors[i], vectors[j])
		}
	}

	// each cluster holds its ordered leaves
	var clusters = make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}
	for len(clusters) > 1 {
		var (
			bestA, bestB = 0, 1
			best         = math.Inf(1)
		)
		for a := 0; a < len(clusters); a++ {
			for b := a + 1; b < len(clusters); b++ {
				d := averageLinkage(dist, clusters[a], clusters[b])
				if d < best {
					best, bestA, bestB = d, a, b
				}
			}
		}
		merged := append(append([]int{}, clusters[bestA]...), clusters[bestB]...)
		clusters[bestA] = merged
		clusters = append(clusters[:bestB], clusters[bestB+1:]...)
	}

	var order = make([]string, n)
	for i, leaf := range clusters[0] {
		order[i] = labels[leaf]
	}
	return order
}

func averageLinkage(dist [][]float64, a, b []int) float64 {
	var total float64
	for _, i := range a {
		for _, j := range b {
			total += dist[i][j]
		}
	}
	return total / float64(len(a)*len(b))
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

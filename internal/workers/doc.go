/*
Package workers sizes and runs small worker pools in containerized
environments.

Go 1.19+ sets GOMAXPROCS from cgroup CPU limits while runtime.NumCPU still
reports host CPUs, so pool sizes are derived from GOMAXPROCS:

	n := workers.ForIO(16) // 2 per available CPU, at most 16

CATALOG_WORKERS pins the count explicitly.

OrderedMap fans a slice out over n goroutines and returns results in input
order. The catalog uses it to read sidecar metadata files concurrently while
keeping the listing in directory order.
*/
package workers

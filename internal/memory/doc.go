// Package memory configures Go's soft memory limit for containerized
// deployments.
//
// GOMAXPROCS follows the cgroup CPU quota automatically but GOMEMLIMIT does
// not. [Configure] derives it from the container limit (MEMORY_LIMIT,
// usually injected through the Kubernetes Downward API) and a ratio
// (MEMORY_RATIO, default 0.85). The rest of the container's memory is left
// for ffmpeg and yt-dlp child processes, goroutine stacks and OS buffers.
// An explicit GOMEMLIMIT always wins.
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.75"
//
// Lower the ratio when many thumbnails or downloads run at once.
package memory

package store

import "scholar-console/internal/api"

const (
	DefaultCVPageSize       = 10
	DefaultMatchPageSize    = 20
	DefaultCampaignPageSize = 10
	DefaultLogPageSize      = 20
)

// Pagination is the page metadata kept for each list.
type Pagination struct {
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

// PaginationOf copies page metadata from a backend page envelope.
func PaginationOf[T any](p api.Page[T]) Pagination {
	return Pagination{
		Page:          p.Number,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}

func defaultPagination(size int) Pagination {
	return Pagination{Size: size}
}

func prepend[T any](list []T, item T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, item)
	return append(out, list...)
}

func replaceWhere[T any](list []T, match func(T) bool, item T) []T {
	out := make([]T, len(list))
	copy(out, list)
	for i := range out {
		if match(out[i]) {
			out[i] = item
		}
	}
	return out
}

func removeWhere[T any](list []T, match func(T) bool) []T {
	out := make([]T, 0, len(list))
	for _, v := range list {
		if !match(v) {
			out = append(out, v)
		}
	}
	return out
}

// stale reports whether a result tagged seq lost the race to a newer
// request. Untagged results are always applied.
func stale(seq, latest uint64) bool {
	return seq != 0 && seq < latest
}

func ptr[T any](v T) *T {
	return &v
}

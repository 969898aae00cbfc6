// Package pagination derives page metadata for offset based listings.
package pagination

import (
	"errors"

	"github.com/morerecipes/apiserver/types"
)

// ErrInvalidArgument is returned for a non-positive limit or negative counts.
var ErrInvalidArgument = errors.New("invalid pagination argument")

// ComputeMeta returns the page metadata for a listing of totalCount rows read
// with the given limit and offset.
func ComputeMeta(totalCount, limit, offset int) (types.PaginationMeta, error) {
	if limit <= 0 || offset < 0 || totalCount < 0 {
		return types.PaginationMeta{}, ErrInvalidArgument
	}

	meta := types.PaginationMeta{
		TotalCount:  totalCount,
		Limit:       limit,
		Offset:      offset,
		CurrentPage: 1,
	}
	if totalCount == 0 {
		return meta, nil
	}

	meta.PageCount = (totalCount + limit - 1) / limit
	meta.CurrentPage = offset/limit + 1
	return meta, nil
}

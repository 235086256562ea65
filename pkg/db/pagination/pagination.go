package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 250
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size" binding:"omitempty,gte=1,lte=250"`
}

// Size returns the requested page size, defaulted and capped.
func (p Pagination) Size() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

type Cursor struct {
	ID string `json:"id,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(token string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidPageToken
	}
	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, ErrInvalidPageToken
	}
	return &cursor, nil
}

// Page slices items, which must be sorted by key ascending, to the page that
// follows the token's cursor.
func Page[T any](items []T, p Pagination, key func(T) string) ([]T, PageInfo, error) {
	start := 0
	if p.PageToken != "" {
		cursor, err := DecodeCursor(p.PageToken)
		if err != nil {
			return nil, PageInfo{}, err
		}
		for start < len(items) && key(items[start]) <= cursor.ID {
			start++
		}
	}

	limit := p.Size()
	end := start + limit
	if end >= len(items) {
		return items[start:], PageInfo{}, nil
	}

	token, err := EncodeCursor(Cursor{ID: key(items[end-1])})
	if err != nil {
		return nil, PageInfo{}, err
	}
	return items[start:end], PageInfo{NextPageToken: token, HasMore: true}, nil
}

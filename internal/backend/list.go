package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// ListKind tells whether a list response was paginated
type ListKind int

const (
	// ListFlat is a bare JSON array
	ListFlat ListKind = iota
	// ListPaginated is a {"data": [...], "current_page": ...} envelope
	ListPaginated
)

func (k ListKind) String() string {
	if k == ListPaginated {
		return "paginated"
	}
	return "flat"
}

// PageInfo is the pagination metadata of a paginated list
type PageInfo struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// HasMore reports whether pages follow the current one
func (p PageInfo) HasMore() bool {
	return p.CurrentPage < p.LastPage
}

// List is a list response resolved at the client boundary. Page is only
// meaningful when Kind is ListPaginated.
type List[T any] struct {
	Kind  ListKind
	Items []T
	Page  PageInfo
}

type paginatedEnvelope[T any] struct {
	Data []T `json:"data"`
	PageInfo
	// Some endpoints nest pagination under "meta"
	Meta *PageInfo `json:"meta,omitempty"`
}

// decodeList accepts either a bare array or a paginated envelope
func decodeList[T any](raw json.RawMessage) (*List[T], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &List[T]{Kind: ListFlat}, nil
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return &List[T]{Kind: ListFlat, Items: items}, nil
	case '{':
		var env paginatedEnvelope[T]
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decode paginated list: %w", err)
		}
		page := env.PageInfo
		if env.Meta != nil {
			page = *env.Meta
		}
		if page.CurrentPage == 0 && page.LastPage == 0 {
			page.CurrentPage, page.LastPage = 1, 1
			if page.Total == 0 {
				page.Total = len(env.Data)
			}
		}
		return &List[T]{Kind: ListPaginated, Items: env.Data, Page: page}, nil
	default:
		return nil, fmt.Errorf("decode list: unexpected JSON value starting with %q", trimmed[0])
	}
}

// decodeResource accepts either a bare object or one wrapped as {"data": {...}}
func decodeResource[T any](raw json.RawMessage) (*T, error) {
	trimmed := bytes.TrimSpace(raw)
	result := new(T)
	if len(trimmed) == 0 {
		return result, nil
	}

	if trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if inner, ok := probe["data"]; ok && len(probe) <= 2 {
			if _, hasID := probe["id"]; !hasID {
				inner = bytes.TrimSpace(inner)
				if len(inner) > 0 && inner[0] == '{' {
					trimmed = inner
				}
			}
		}
	}

	if err := json.Unmarshal(trimmed, result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

func doResource[T any](ctx context.Context, c *Client, endpoint, method, path string, body any) (*T, error) {
	var raw json.RawMessage
	if err := c.request(ctx, endpoint, method, path, body, &raw); err != nil {
		return nil, err
	}
	return decodeResource[T](raw)
}

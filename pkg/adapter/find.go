package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sternrassler/tastypie-client/pkg/pagination"
)

// Find loads a single record: GET {type}/{id}/.
func (a *Adapter) Find(ctx context.Context, typeKey, id string) ([]byte, error) {
	return a.ajax(ctx, "find", Request{
		Method: http.MethodGet,
		URL:    a.BuildURL(typeKey, id),
	})
}

// FindMany loads several records of one type in a single request:
// GET {type}/set/{id1};{id2};.../.
func (a *Adapter) FindMany(ctx context.Context, typeKey string, ids []string) ([]byte, error) {
	return a.ajax(ctx, "find_many", Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%sset/%s/", a.BuildURL(typeKey, ""), strings.Join(ids, ";")),
	})
}

// FindAll loads a page of a resource list. sinceToken is the value of the
// Since metadata field from the previous page, usually the next-page URL;
// its offset is forwarded to the server. An empty or unmatched token
// requests the first page.
func (a *Adapter) FindAll(ctx context.Context, typeKey, sinceToken string) ([]byte, error) {
	var query url.Values
	if offset, ok := pagination.ParseOffset(sinceToken); ok {
		query = url.Values{"offset": []string{offset}}
	}

	return a.ajax(ctx, "find_all", Request{
		Method: http.MethodGet,
		URL:    a.BuildURL(typeKey, ""),
		Query:  query,
	})
}

// FindQuery loads a filtered resource list: GET {type}/?{query}.
func (a *Adapter) FindQuery(ctx context.Context, typeKey string, query url.Values) ([]byte, error) {
	return a.ajax(ctx, "find_query", Request{
		Method: http.MethodGet,
		URL:    a.BuildURL(typeKey, ""),
		Query:  query,
	})
}

// CreateRecord posts a serialized record: POST {type}/.
func (a *Adapter) CreateRecord(ctx context.Context, typeKey string, payload []byte) ([]byte, error) {
	return a.ajax(ctx, "create", Request{
		Method: http.MethodPost,
		URL:    a.BuildURL(typeKey, ""),
		Body:   payload,
	})
}

// UpdateRecord replaces a serialized record: PUT {type}/{id}/.
func (a *Adapter) UpdateRecord(ctx context.Context, typeKey, id string, payload []byte) ([]byte, error) {
	return a.ajax(ctx, "update", Request{
		Method: http.MethodPut,
		URL:    a.BuildURL(typeKey, id),
		Body:   payload,
	})
}

// DeleteRecord deletes a record: DELETE {type}/{id}/.
func (a *Adapter) DeleteRecord(ctx context.Context, typeKey, id string) ([]byte, error) {
	return a.ajax(ctx, "delete", Request{
		Method: http.MethodDelete,
		URL:    a.BuildURL(typeKey, id),
	})
}

func (a *Adapter) ajax(ctx context.Context, operation string, req Request) ([]byte, error) {
	a.logger.Debug().
		Str("operation", operation).
		Str("method", req.Method).
		Str("url", req.URL).
		Msg("Issuing tastypie request")

	payload, err := a.transport.Ajax(ctx, req)
	if err != nil {
		return nil, a.reject(operation, req, err)
	}
	return payload, nil
}

package adapter

import (
	"fmt"
	"net/url"
	"strings"
)

// idsParamLength is the per-id overhead of an `ids[]=` query list.
var idsParamLength = len("&ids%5B%5D=")

// Record identifies a single record by type and id.
type Record struct {
	Type string
	ID   string
}

// NewRecord creates a Record, formatting numeric ids with fmt.
func NewRecord(typeKey string, id any) Record {
	return Record{Type: typeKey, ID: fmt.Sprint(id)}
}

// StripIDFromURL removes the record id from a record URL so that records
// of the same type share a base URL. Two shapes are understood:
//
//	.../comments/5/   -> .../comments//
//	.../comments/5    -> .../comments/
//	.../comments?id=5 -> .../comments?
//
// The id segment is emptied rather than removed, so a trailing slash
// survives. Any other URL is returned unchanged.
func StripIDFromURL(rawURL, id string) string {
	if id == "" {
		return rawURL
	}

	trailing := strings.HasSuffix(rawURL, "/")
	segments := strings.Split(strings.TrimSuffix(rawURL, "/"), "/")
	last := segments[len(segments)-1]

	switch {
	case last == id || last == url.PathEscape(id):
		segments[len(segments)-1] = ""
	case strings.HasSuffix(last, "?id="+id):
		segments[len(segments)-1] = strings.TrimSuffix(last, "id="+id)
	default:
		return rawURL
	}

	stripped := strings.Join(segments, "/")
	if trailing {
		stripped += "/"
	}
	return stripped
}

// baseURL returns the URL shared by every record of the same type.
func (a *Adapter) baseURL(r Record) string {
	return StripIDFromURL(a.BuildURL(r.Type, r.ID), r.ID)
}

// GroupRecordsForFindMany organizes records into groups, each of which
// can be loaded by a single FindMany call. Records are grouped by base URL
// in order of first appearance, then each group is split greedily so that
// the id list never pushes the request past MaxURLLength. A record whose id
// alone exceeds the budget still gets a group of its own.
func (a *Adapter) GroupRecordsForFindMany(records []Record) [][]Record {
	var order []string
	buckets := make(map[string][]Record)

	for _, r := range records {
		base := a.baseURL(r)
		if _, ok := buckets[base]; !ok {
			order = append(order, base)
		}
		buckets[base] = append(buckets[base], r)
	}

	var groups [][]Record
	for _, base := range order {
		groups = append(groups, splitGroupToFitInURL(buckets[base], base, a.config.MaxURLLength)...)
	}

	findManyGroupsTotal.Add(float64(len(groups)))
	for _, g := range groups {
		findManyGroupSize.Observe(float64(len(g)))
	}

	a.logger.Debug().
		Int("records", len(records)).
		Int("base_urls", len(order)).
		Int("groups", len(groups)).
		Msg("Grouped records for find many")

	return groups
}

func splitGroupToFitInURL(group []Record, base string, maxURLLength int) [][]Record {
	var split [][]Record
	var current []Record
	idsSize := 0

	for _, r := range group {
		additional := encodedComponentLength(r.ID) + idsParamLength
		if len(current) > 0 && len(base)+idsSize+additional >= maxURLLength {
			split = append(split, current)
			current = nil
			idsSize = 0
		}

		idsSize += additional
		current = append(current, r)
	}

	if len(current) > 0 {
		split = append(split, current)
	}

	return split
}

// encodedComponentLength returns the length of s once escaped as a URI
// component: unreserved characters stay as-is, every other byte becomes %XX.
func encodedComponentLength(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if isUnreservedComponentByte(s[i]) {
			n++
		} else {
			n += 3
		}
	}
	return n
}

func isUnreservedComponentByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

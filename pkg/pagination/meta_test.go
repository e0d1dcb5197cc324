package pagination

import (
	"testing"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		want   string
		wantOK bool
	}{
		{
			name:   "next url with offset",
			token:  "/api/v1/post/?limit=20&offset=40",
			want:   "40",
			wantOK: true,
		},
		{
			name:   "offset before limit",
			token:  "/api/v1/post/?offset=40&limit=20",
			want:   "40",
			wantOK: true,
		},
		{
			name:   "bare token",
			token:  "offset=0",
			want:   "0",
			wantOK: true,
		},
		{
			name:   "empty token",
			token:  "",
			wantOK: false,
		},
		{
			name:   "no offset",
			token:  "/api/v1/post/?limit=20",
			wantOK: false,
		},
		{
			name:   "non numeric offset",
			token:  "/api/v1/post/?offset=abc",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseOffset(tt.token)
			if ok != tt.wantOK {
				t.Fatalf("ParseOffset(%q) ok = %v, want %v", tt.token, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseOffset(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestDecodeList(t *testing.T) {
	payload := []byte(`{
		"meta": {"limit": 2, "next": "/api/v1/post/?offset=2&limit=2", "offset": 0, "previous": null, "total_count": 5},
		"objects": [{"id": 1}, {"id": 2}]
	}`)

	list, err := DecodeList(payload)
	if err != nil {
		t.Fatalf("DecodeList() error = %v", err)
	}

	if list.Meta.Limit != 2 || list.Meta.TotalCount != 5 {
		t.Errorf("Meta = %+v, want limit 2 and total_count 5", list.Meta)
	}
	if !list.Meta.HasNext() {
		t.Error("HasNext() = false, want true")
	}
	if list.Meta.Previous != nil {
		t.Errorf("Previous = %v, want nil", *list.Meta.Previous)
	}
	if len(list.Objects) != 2 {
		t.Errorf("len(Objects) = %d, want 2", len(list.Objects))
	}

	if _, err := DecodeList([]byte("not json")); err == nil {
		t.Error("DecodeList() expected error for invalid payload")
	}
}

func TestSinceToken(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
		want    string
		wantErr bool
	}{
		{
			name:    "next field",
			payload: `{"meta": {"next": "/api/v1/post/?offset=20"}}`,
			field:   "next",
			want:    "/api/v1/post/?offset=20",
		},
		{
			name:    "null next",
			payload: `{"meta": {"next": null}}`,
			field:   "next",
			want:    "",
		},
		{
			name:    "custom field",
			payload: `{"meta": {"cursor": "offset=60", "next": null}}`,
			field:   "cursor",
			want:    "offset=60",
		},
		{
			name:    "missing meta",
			payload: `{"objects": []}`,
			field:   "next",
			want:    "",
		},
		{
			name:    "non string field",
			payload: `{"meta": {"next": 20}}`,
			field:   "next",
			wantErr: true,
		},
		{
			name:    "invalid json",
			payload: `{`,
			field:   "next",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SinceToken([]byte(tt.payload), tt.field)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SinceToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SinceToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOffsets(t *testing.T) {
	next := "/api/v1/post/?offset=20"

	tests := []struct {
		name string
		meta Meta
		want []int
	}{
		{
			name: "three pages",
			meta: Meta{Limit: 20, Offset: 0, TotalCount: 50, Next: &next},
			want: []int{20, 40},
		},
		{
			name: "exact multiple",
			meta: Meta{Limit: 10, Offset: 0, TotalCount: 30, Next: &next},
			want: []int{10, 20},
		},
		{
			name: "no next page",
			meta: Meta{Limit: 20, Offset: 0, TotalCount: 15},
			want: nil,
		},
		{
			name: "unlimited",
			meta: Meta{Limit: 0, TotalCount: 100, Next: &next},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Offsets(tt.meta)
			if len(got) != len(tt.want) {
				t.Fatalf("Offsets() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Offsets()[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

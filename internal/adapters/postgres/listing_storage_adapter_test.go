package postgres

import (
	"reflect"
	"testing"
)

func TestDiffImages(t *testing.T) {
	tests := []struct {
		name       string
		existing   []string
		feed       []string
		wantDelete []string
		wantAdd    []string
	}{
		{
			name:     "no changes",
			existing: []string{"a.jpg", "b.jpg"},
			feed:     []string{"a.jpg", "b.jpg"},
		},
		{
			name:       "image removed from feed",
			existing:   []string{"a.jpg", "b.jpg", "c.jpg"},
			feed:       []string{"a.jpg", "c.jpg"},
			wantDelete: []string{"b.jpg"},
		},
		{
			name:     "new images appended in feed order",
			existing: []string{"a.jpg"},
			feed:     []string{"a.jpg", "b.jpg", "c.jpg"},
			wantAdd:  []string{"b.jpg", "c.jpg"},
		},
		{
			name:       "full replacement",
			existing:   []string{"a.jpg", "b.jpg"},
			feed:       []string{"x.jpg", "y.jpg"},
			wantDelete: []string{"a.jpg", "b.jpg"},
			wantAdd:    []string{"x.jpg", "y.jpg"},
		},
		{
			name:       "feed emptied",
			existing:   []string{"a.jpg"},
			feed:       nil,
			wantDelete: []string{"a.jpg"},
		},
		{
			name: "both empty",
		},
		{
			// Перестановка картинок в фиде не трогает сохраненный порядок.
			name:     "reorder in feed is a no-op",
			existing: []string{"a.jpg", "b.jpg"},
			feed:     []string{"b.jpg", "a.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotDelete, gotAdd := diffImages(tt.existing, tt.feed)
			if !reflect.DeepEqual(gotDelete, tt.wantDelete) {
				t.Errorf("toDelete = %v; want %v", gotDelete, tt.wantDelete)
			}
			if !reflect.DeepEqual(gotAdd, tt.wantAdd) {
				t.Errorf("toAdd = %v; want %v", gotAdd, tt.wantAdd)
			}
		})
	}
}

package vectorstore

import "testing"

// Collection names are flat: the index root directory must never leak into
// them.
func TestQdrantStore_Location(t *testing.T) {
	s := &QdrantStore{}
	if got := s.Location("./data/index", "report-1234"); got != "report-1234" {
		t.Errorf("Location() = %q, want plain collection name", got)
	}
}

func TestQdrantStore_TempLocation(t *testing.T) {
	s := &QdrantStore{}
	if got := s.TempLocation("report-1234"); got != "report-1234-tmp" {
		t.Errorf("TempLocation() = %q", got)
	}
}

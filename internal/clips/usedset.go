package clips

import (
	"strings"
	"sync"
)

// variantMarkers identify where a provider appends rendition details to a
// clip link, e.g. ".../371433846.hd.mp4?s=..." or ".../3571264-hd_1920_1080_30fps.mp4".
var variantMarkers = []string{".hd", ".sd", ".uhd", "-hd_", "-sd_", "-uhd_"}

// NormalizeMediaID strips the rendition suffix and query from a clip link so
// every variant of one source clip maps to the same identifier.
func NormalizeMediaID(link string) string {
	id := strings.TrimSpace(link)
	if i := strings.IndexAny(id, "?#"); i >= 0 {
		id = id[:i]
	}
	slash := strings.LastIndex(id, "/") + 1
	base := strings.ToLower(id[slash:])
	cut := len(base)
	for _, marker := range variantMarkers {
		if i := strings.Index(base, marker); i >= 0 && i < cut {
			cut = i
		}
	}
	return id[:slash+cut]
}

// UsedMediaSet records source clips already placed on the timeline. It is
// created per run and safe for concurrent use.
type UsedMediaSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewUsedMediaSet() *UsedMediaSet {
	return &UsedMediaSet{ids: make(map[string]struct{})}
}

// Claim records link and returns true, or returns false if a variant of it
// was already claimed. Check and insert happen under one lock.
func (s *UsedMediaSet) Claim(link string) bool {
	id := NormalizeMediaID(link)
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

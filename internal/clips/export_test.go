package clips

import "context"

func (r *Resolver) Resolve(ctx context.Context, w QueryWindow, orientation Orientation, used *UsedMediaSet) (MediaRef, bool, error) {
	return r.resolve(ctx, w, orientation, used, nil)
}

func (s *UsedMediaSet) Contains(link string) bool {
	id := NormalizeMediaID(link)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *UsedMediaSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

package statestore

import (
	"context"
	"strings"
	"sync"
)

type Memory struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

func (s *Memory) Get(_ context.Context, session, kind string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key(session, kind)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Memory) Put(_ context.Context, session, kind string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key(session, kind)] = append([]byte(nil), value...)
	return nil
}

func (s *Memory) Delete(_ context.Context, session, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key(session, kind))
	return nil
}

func (s *Memory) ClearSession(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := sessionPrefix(session)
	for k := range s.m {
		if strings.HasPrefix(k, p) {
			delete(s.m, k)
		}
	}
	return nil
}

func (s *Memory) Close() error { return nil }

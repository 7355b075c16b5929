package family

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// TraitCap bounds the per-member trait list; the oldest observation is
// dropped when a new one would exceed it.
const TraitCap = 20

// Store owns the in-memory family record and its JSON persistence.
//
// Mutations take a shared record lock plus a per-member mutex, so two
// concurrent turns for the same member cannot interleave read-modify-write
// on interests or history, while unrelated members do not serialize.
// Saves take the record lock exclusively and write atomically
// (temp file + rename), so a crash mid-save cannot corrupt the file.
type Store struct {
	path string

	mu       sync.RWMutex
	record   *Record
	memberMu map[string]*sync.Mutex
}

// Open loads the persisted record, or synthesizes and persists the seed
// roster when the file is missing or unreadable. The seed path is a silent
// recovery, not an error.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	record, err := readRecord(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("family store: rebuilding from seed roster: %v", err)
		}
		record = seedRecord()
		s.record = record
		s.indexMembers()
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	s.record = record
	s.indexMembers()
	return s, nil
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse family record: %w", err)
	}
	if record.Members == nil {
		record.Members = NewRoster()
	}
	return &record, nil
}

func (s *Store) indexMembers() {
	s.memberMu = make(map[string]*sync.Mutex, s.record.Members.Len())
	for _, id := range s.record.Members.IDs() {
		s.memberMu[id] = &sync.Mutex{}
	}
}

// Member returns a deep copy of the member's profile. The copy is made
// under the member's mutex so it cannot tear against a concurrent
// mutation of the same member.
func (s *Store) Member(id string) (Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.record.Members.Get(id)
	if !ok {
		return Member{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	lock := s.memberMu[id]
	lock.Lock()
	c := copyMember(m)
	lock.Unlock()
	return c, nil
}

// Snapshot returns a deep copy of the whole record for read-only use.
// Each member is copied under its own mutex; the snapshot is consistent
// per member, not across members.
func (s *Store) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Record{Family: Info{Name: s.record.Family.Name}, Members: NewRoster()}
	out.Family.Values = append([]string(nil), s.record.Family.Values...)
	for _, id := range s.record.Members.IDs() {
		m, _ := s.record.Members.Get(id)
		lock := s.memberMu[id]
		lock.Lock()
		c := copyMember(m)
		lock.Unlock()
		out.Members.Add(&c)
	}
	return out
}

// AppendTurn appends one immutable turn to the member's embedded history
// and persists the record.
func (s *Store) AppendTurn(id string, turn ConversationTurn) error {
	lock, err := s.lockFor(id)
	if err != nil {
		return err
	}

	s.mu.RLock()
	lock.Lock()
	m, _ := s.record.Members.Get(id)
	m.ConversationHistory = append(m.ConversationHistory, turn)
	lock.Unlock()
	s.mu.RUnlock()

	return s.save()
}

// AddInterest appends an interest unless already present. Reports whether
// the set changed; the record is persisted only when it did.
func (s *Store) AddInterest(id, interest string) (bool, error) {
	lock, err := s.lockFor(id)
	if err != nil {
		return false, err
	}

	added := false
	s.mu.RLock()
	lock.Lock()
	m, _ := s.record.Members.Get(id)
	if !contains(m.Interests, interest) {
		m.Interests = append(m.Interests, interest)
		added = true
	}
	lock.Unlock()
	s.mu.RUnlock()

	if !added {
		return false, nil
	}
	return true, s.save()
}

// AddTrait appends a dated trait observation, dropping the oldest entry
// once the cap is reached, and persists the record.
func (s *Store) AddTrait(id string, obs TraitObservation) error {
	lock, err := s.lockFor(id)
	if err != nil {
		return err
	}

	s.mu.RLock()
	lock.Lock()
	m, _ := s.record.Members.Get(id)
	m.Traits = append(m.Traits, obs)
	if len(m.Traits) > TraitCap {
		m.Traits = m.Traits[len(m.Traits)-TraitCap:]
	}
	lock.Unlock()
	s.mu.RUnlock()

	return s.save()
}

func (s *Store) lockFor(id string) (*sync.Mutex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lock, ok := s.memberMu[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return lock, nil
}

// save rewrites the whole document through a temp file and rename.
func (s *Store) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.record, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrStoreUnavailable, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	tmp, err := os.CreateTemp(dir, ".family-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func copyMember(m *Member) Member {
	c := *m
	c.Interests = append([]string(nil), m.Interests...)
	c.Traits = append([]TraitObservation(nil), m.Traits...)
	c.ConversationHistory = append([]ConversationTurn(nil), m.ConversationHistory...)
	return c
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hostrate/apiserver/internal/auth"
	"github.com/hostrate/apiserver/internal/storage"
	"github.com/hostrate/apiserver/internal/store"
	"github.com/hostrate/apiserver/types"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memoryHosts struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]types.Host
	err    error
}

func newMemoryHosts() *memoryHosts {
	return &memoryHosts{nextID: 1, byID: map[int]types.Host{}}
}

func (m *memoryHosts) GetByID(_ context.Context, id int) (types.Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return types.Host{}, m.err
	}
	host, ok := m.byID[id]
	if !ok {
		return types.Host{}, store.ErrNotFound
	}
	return host, nil
}

func (m *memoryHosts) GetByEmail(_ context.Context, email string) (types.Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return types.Host{}, m.err
	}
	for _, host := range m.byID {
		if host.Email == email {
			return host, nil
		}
	}
	return types.Host{}, store.ErrNotFound
}

func (m *memoryHosts) Create(_ context.Context, host types.Host) (types.Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return types.Host{}, m.err
	}
	for _, existing := range m.byID {
		if existing.Email == host.Email {
			return types.Host{}, store.ErrDuplicate
		}
	}
	host.ID = m.nextID
	host.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.nextID++
	m.byID[host.ID] = host
	return host, nil
}

func (m *memoryHosts) Update(_ context.Context, id int, patch types.HostPatch) (types.Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return types.Host{}, m.err
	}
	host, ok := m.byID[id]
	if !ok {
		return types.Host{}, store.ErrNotFound
	}
	if patch.Name.Set {
		host.Name = patch.Name.Value
	}
	if patch.Phone.Set {
		host.Phone = patch.Phone.Value
	}
	if patch.Bio.Set {
		host.Bio = patch.Bio.Value
	}
	if patch.City.Set {
		host.City = patch.City.Value
	}
	m.byID[id] = host
	return host, nil
}

func (m *memoryHosts) SetAvatar(_ context.Context, id int, key, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	host, ok := m.byID[id]
	if !ok {
		return "", store.ErrNotFound
	}
	previous := host.AvatarKey
	host.AvatarKey = key
	host.AvatarContentType = contentType
	host.HasAvatar = true
	m.byID[id] = host
	return previous, nil
}

func (m *memoryHosts) Delete(_ context.Context, id int) (types.Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return types.Host{}, m.err
	}
	host, ok := m.byID[id]
	if !ok {
		return types.Host{}, store.ErrNotFound
	}
	delete(m.byID, id)
	return host, nil
}

// memoryRatings only accepts ratings for hosts present in hosts, like the foreign key does.
type memoryRatings struct {
	hosts  *memoryHosts
	nextID int64
	saved  []types.Rating
}

func (m *memoryRatings) Create(_ context.Context, rating types.Rating) (types.Rating, error) {
	m.hosts.mu.Lock()
	_, ok := m.hosts.byID[rating.HostID]
	m.hosts.mu.Unlock()
	if !ok {
		return types.Rating{}, store.ErrNotFound
	}
	m.nextID++
	rating.ID = m.nextID
	rating.CreatedAt = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	m.saved = append(m.saved, rating)
	return rating, nil
}

type plainHasher struct {
	compared []string
	hashErr  error
}

func (h *plainHasher) Hash(password string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + password, nil
}

func (h *plainHasher) Compare(hash, password string) error {
	h.compared = append(h.compared, hash)
	if hash != "hashed:"+password {
		return auth.ErrPasswordMismatch
	}
	return nil
}

type stubSigner struct {
	err error
}

func (s stubSigner) Sign(host types.Host) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("token-%d", host.ID), nil
}

type recordedEvent struct {
	channel string
	payload any
}

type recordingEvents struct {
	events []recordedEvent
	err    error
}

func (r *recordingEvents) PublishJSON(_ context.Context, channel string, v any) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.events = append(r.events, recordedEvent{channel: channel, payload: v})
	return fmt.Sprintf("msg-%d", len(r.events)), nil
}

type memoryObjects struct {
	objects map[string][]byte
	putErr  error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}}
}

func (m *memoryObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjects) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryObjects) keysWithPrefix(prefix string) []string {
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

var errBoom = errors.New("boom")

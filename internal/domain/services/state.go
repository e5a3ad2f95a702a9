package services

import (
	"sync"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/activity"
	"github.com/FerDeNetlab/auramarket/internal/domain/models"
)

// State явный контейнер состояния панели: поставщики, маркетплейсы,
// подключение к хабу и журнал. Изменяется только через Orchestrator.
type State struct {
	mu           sync.RWMutex
	providers    []models.Provider
	marketplaces []models.Marketplace
	hub          models.HubConnection
	// inFlight поставщики, для которых выполняется операция
	inFlight map[string]struct{}
	hubBusy  bool

	log *activity.Log
}

// NewState создает пустое состояние, емкость журнала приводится к [50, 100]
func NewState(logCapacity int) *State {
	return &State{
		hub:      models.HubConnection{Status: models.StatusConnected},
		inFlight: make(map[string]struct{}),
		log:      activity.NewLog(logCapacity),
	}
}

// Log журнал активности, доступен только для чтения снаружи пакета
func (s *State) Log() *activity.Log {
	return s.log
}

func (s *State) setHubName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hub.Name = name
}

// setProviders заменяет список. Поставщики с операцией в полете остаются в syncing,
// даже если хранилище вернуло другой статус.
func (s *State) setProviders(list []models.Provider) {
	out := make([]models.Provider, 0, len(list))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range list {
		if _, busy := s.inFlight[p.ID]; busy {
			p.Status = models.StatusSyncing
		}
		out = append(out, p.Clone())
	}
	s.providers = out
}

func (s *State) setMarketplaces(list []models.Marketplace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marketplaces = append([]models.Marketplace(nil), list...)
}

func (s *State) providersSnapshot() []models.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, p.Clone())
	}
	return out
}

func (s *State) marketplacesSnapshot() []models.Marketplace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Marketplace(nil), s.marketplaces...)
}

func (s *State) provider(id string) (models.Provider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.providers {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return models.Provider{}, false
}

// beginProvider атомарно переводит поставщика в syncing.
// Удается только из disconnected, connected или error и только одному вызывающему.
func (s *State) beginProvider(id string, now time.Time) (models.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.providers {
		p := &s.providers[i]
		if p.ID != id {
			continue
		}
		if _, busy := s.inFlight[id]; busy || !p.Status.CanStartOperation() {
			return models.Provider{}, &models.PreconditionError{Kind: models.AlreadyInFlight, EntityID: id}
		}
		s.inFlight[id] = struct{}{}
		p.Status = models.StatusSyncing
		p.UpdatedAt = laterOf(now, p.CreatedAt)
		return p.Clone(), nil
	}
	return models.Provider{}, &models.PreconditionError{Kind: models.EntityNotFound, EntityID: id}
}

// finishProvider снимает отметку операции и выставляет итоговое состояние поставщика
func (s *State) finishProvider(final models.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, final.ID)
	for i := range s.providers {
		if s.providers[i].ID == final.ID {
			s.providers[i] = final.Clone()
			return
		}
	}
}

// settleProvider после обновления из хранилища возвращает итоговый статус операции.
// Счетчики остаются из хранилища, статус берется локальный, если хранилище его не приняло.
func (s *State) settleProvider(id string, status models.ConnectionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[id]; busy {
		return
	}
	for i := range s.providers {
		if s.providers[i].ID == id {
			s.providers[i].Status = status
		}
	}
}

// beginHub атомарно переводит хаб в syncing
func (s *State) beginHub(now time.Time) (models.HubConnection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hubBusy {
		return models.HubConnection{}, false
	}
	s.hubBusy = true
	s.hub.Status = models.StatusSyncing
	s.hub.UpdatedAt = now
	return s.hub, true
}

func (s *State) finishHub(status models.ConnectionStatus, now time.Time) models.HubConnection {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hubBusy = false
	s.hub.Status = status
	s.hub.UpdatedAt = now
	return s.hub
}

func (s *State) hubSnapshot() models.HubConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub
}

func laterOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}

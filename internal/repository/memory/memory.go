// Package memory is an in-process implementation of the repositories used by
// tests and local runs without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"lending-service/internal/models"
	"lending-service/pkg/apperrors"
)

// Store holds every record. Reads return copies so callers never share state
// with the store.
type Store struct {
	mu         sync.RWMutex
	principals map[string]*models.Principal
	clients    map[string]*models.Client
	defaults   map[string]*models.DefaultedEMI

	// one mutex per loan, held across UpdateLoan's read-modify-write
	loanLocks sync.Map
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		principals: make(map[string]*models.Principal),
		clients:    make(map[string]*models.Client),
		defaults:   make(map[string]*models.DefaultedEMI),
	}
}

// Principals returns the principal repository view of the store
func (s *Store) Principals() *PrincipalRepo { return &PrincipalRepo{s: s} }

// Clients returns the client repository view of the store
func (s *Store) Clients() *ClientRepo { return &ClientRepo{s: s} }

// Defaults returns the default repository view of the store
func (s *Store) Defaults() *DefaultRepo { return &DefaultRepo{s: s} }

func (s *Store) loanLock(loanID string) *sync.Mutex {
	lock, _ := s.loanLocks.LoadOrStore(loanID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// PrincipalRepo is an in-memory implementation of repository.PrincipalRepository
type PrincipalRepo struct {
	s *Store
}

// Create stores a principal. Username and email are unique per role.
func (r *PrincipalRepo) Create(ctx context.Context, principal *models.Principal) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.principals {
		if p.Role != principal.Role {
			continue
		}
		if strings.EqualFold(p.Username, principal.Username) {
			return "", apperrors.Conflict("%s with username %s already exists", principal.Role, principal.Username)
		}
		if strings.EqualFold(p.Email, principal.Email) {
			return "", apperrors.Conflict("%s with email %s already exists", principal.Role, principal.Email)
		}
	}

	if principal.ID == "" {
		principal.ID = uuid.NewString()
	}
	cp := *principal
	r.s.principals[cp.ID] = &cp

	return cp.ID, nil
}

// GetByID gets a principal by ID
func (r *PrincipalRepo) GetByID(ctx context.Context, id string) (*models.Principal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.principals[id]
	if !ok {
		return nil, apperrors.NotFound("principal %s not found", id)
	}
	cp := *p
	return &cp, nil
}

// GetByUsername gets a principal of the role by username
func (r *PrincipalRepo) GetByUsername(ctx context.Context, role models.Role, username string) (*models.Principal, error) {
	return r.find(role, func(p *models.Principal) bool { return strings.EqualFold(p.Username, username) })
}

// GetByEmail gets a principal of the role by email
func (r *PrincipalRepo) GetByEmail(ctx context.Context, role models.Role, email string) (*models.Principal, error) {
	return r.find(role, func(p *models.Principal) bool { return strings.EqualFold(p.Email, email) })
}

func (r *PrincipalRepo) find(role models.Role, match func(*models.Principal) bool) (*models.Principal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.principals {
		if p.Role == role && match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("%s not found", role)
}

// List returns every principal of the role, oldest first
func (r *PrincipalRepo) List(ctx context.Context, role models.Role) ([]*models.Principal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := []*models.Principal{}
	for _, p := range r.s.principals {
		if p.Role == role {
			cp := *p
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })

	return list, nil
}

// Delete removes a principal
func (r *PrincipalRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.principals[id]; !ok {
		return apperrors.NotFound("principal %s not found", id)
	}
	delete(r.s.principals, id)
	return nil
}

// ClientRepo is an in-memory implementation of repository.ClientRepository
type ClientRepo struct {
	s *Store
}

// Create stores a client and its loans
func (r *ClientRepo) Create(ctx context.Context, client *models.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.clients[client.ID]; ok {
		return apperrors.Conflict("client %s already exists", client.ID)
	}
	r.s.clients[client.ID] = client.Clone()
	return nil
}

// GetByID gets a client with its loans
func (r *ClientRepo) GetByID(ctx context.Context, id string) (*models.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	client, ok := r.s.clients[id]
	if !ok {
		return nil, apperrors.NotFound("client %s not found", id)
	}
	return client.Clone(), nil
}

// List returns every client, newest first
func (r *ClientRepo) List(ctx context.Context) ([]*models.Client, error) {
	return r.filter(func(*models.Client) bool { return true }), nil
}

// Search returns clients whose name contains the query
func (r *ClientRepo) Search(ctx context.Context, query string) ([]*models.Client, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	return r.filter(func(c *models.Client) bool {
		return strings.Contains(strings.ToLower(c.ClientName), query)
	}), nil
}

func (r *ClientRepo) filter(match func(*models.Client) bool) []*models.Client {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := []*models.Client{}
	for _, c := range r.s.clients {
		if match(c) {
			list = append(list, c.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })

	return list
}

// FindDuplicate looks a client up by exact name or any phone number
func (r *ClientRepo) FindDuplicate(ctx context.Context, name string, phones []string) (*models.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.clients {
		if c.ClientName == name {
			return c.Clone(), nil
		}
		for _, existing := range c.ClientPhoneNumbers {
			for _, phone := range phones {
				if existing == phone {
					return c.Clone(), nil
				}
			}
		}
	}
	return nil, nil
}

// Delete removes a client with its loans and defaults
func (r *ClientRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.clients[id]; !ok {
		return apperrors.NotFound("client %s not found", id)
	}
	delete(r.s.clients, id)
	for defID, d := range r.s.defaults {
		if d.ClientID == id {
			delete(r.s.defaults, defID)
		}
	}
	return nil
}

// AddLoan appends a loan to a client
func (r *ClientRepo) AddLoan(ctx context.Context, clientID string, loan *models.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	client, ok := r.s.clients[clientID]
	if !ok {
		return apperrors.NotFound("client %s not found", clientID)
	}
	loan.ClientID = clientID
	client.Loans = append(client.Loans, loan.Clone())
	return nil
}

// DeleteLoan removes a loan and its defaults
func (r *ClientRepo) DeleteLoan(ctx context.Context, clientID, loanID string) error {
	lock := r.s.loanLock(loanID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	client, ok := r.s.clients[clientID]
	if !ok {
		return apperrors.NotFound("client %s not found", clientID)
	}

	idx := loanIndex(client, loanID)
	if idx < 0 {
		return apperrors.NotFound("loan %s not found", loanID)
	}
	client.Loans = append(client.Loans[:idx:idx], client.Loans[idx+1:]...)

	for defID, d := range r.s.defaults {
		if d.LoanID == loanID {
			delete(r.s.defaults, defID)
		}
	}
	return nil
}

// UpdateLoan runs fn on copies of the client and loan while holding the loan's
// lock, then commits the loan and its defaults in one step
func (r *ClientRepo) UpdateLoan(ctx context.Context, clientID, loanID string, fn models.LoanMutation) (*models.Client, *models.Loan, error) {
	lock := r.s.loanLock(loanID)
	lock.Lock()
	defer lock.Unlock()

	client, err := r.GetByID(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}

	loan := client.FindLoan(loanID)
	if loan == nil {
		return nil, nil, apperrors.NotFound("loan %s not found", loanID)
	}

	update, err := fn(client, loan)
	if err != nil {
		return nil, nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.clients[clientID]
	if !ok {
		return nil, nil, apperrors.NotFound("client %s not found", clientID)
	}
	idx := loanIndex(stored, loanID)
	if idx < 0 {
		return nil, nil, apperrors.NotFound("loan %s not found", loanID)
	}

	if update != nil {
		if update.ResolvedDefault != "" {
			if _, ok := r.s.defaults[update.ResolvedDefault]; !ok {
				return nil, nil, apperrors.NotFound("default %s not found", update.ResolvedDefault)
			}
			delete(r.s.defaults, update.ResolvedDefault)
		}
		for _, d := range update.NewDefaults {
			cp := *d
			r.s.defaults[cp.ID] = &cp
		}
	}

	loan.Version++
	stored.Loans[idx] = loan.Clone()

	return client, loan, nil
}

func loanIndex(client *models.Client, loanID string) int {
	for i, loan := range client.Loans {
		if loan.ID == loanID {
			return i
		}
	}
	return -1
}

// DefaultRepo is an in-memory implementation of repository.DefaultRepository
type DefaultRepo struct {
	s *Store
}

// GetByID gets a defaulted EMI
func (r *DefaultRepo) GetByID(ctx context.Context, id string) (*models.DefaultedEMI, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.defaults[id]
	if !ok {
		return nil, apperrors.NotFound("default %s not found", id)
	}
	cp := *d
	return &cp, nil
}

// ListByClient returns the open defaults of a client, oldest first
func (r *DefaultRepo) ListByClient(ctx context.Context, clientID string) ([]*models.DefaultedEMI, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := []*models.DefaultedEMI{}
	for _, d := range r.s.defaults {
		if d.ClientID == clientID {
			cp := *d
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })

	return list, nil
}

// Count returns the number of open defaults
func (r *DefaultRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return len(r.s.defaults), nil
}

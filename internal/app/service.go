package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shoplink/api/internal/accounts"
	"shoplink/api/internal/auth"
	"shoplink/api/internal/config"
	"shoplink/api/internal/realtime"
	"shoplink/api/internal/store"
	"shoplink/api/internal/util"
)

type Session struct {
	UserID string
	Email  string
}

type UpdateListInput struct {
	Name   *string `json:"name"`
	Status *string `json:"status"`
}

type CreateItemInput struct {
	Name     string `json:"name"`
	Quantity *int   `json:"quantity"`
	Unit     string `json:"unit"`
	Notes    string `json:"notes"`
}

type UpdateItemInput struct {
	Name     *string `json:"name"`
	Quantity *int    `json:"quantity"`
	Unit     *string `json:"unit"`
	Notes    *string `json:"notes"`
	Status   *string `json:"status"`
}

// ShareSummary is what an anonymous shopkeeper learns about the share
// itself: never the list owner.
type ShareSummary struct {
	Token          string `json:"shareToken"`
	ShopkeeperName string `json:"shopkeeperName,omitempty"`
}

// SharedList is the payload behind a share link.
type SharedList struct {
	List  store.List   `json:"list"`
	Items []store.Item `json:"items"`
	Share ShareSummary `json:"share"`
}

var allowedListStatuses = map[string]struct{}{
	store.ListStatusDraft:     {},
	store.ListStatusShared:    {},
	store.ListStatusCompleted: {},
}

var allowedItemStatuses = map[string]struct{}{
	store.ItemStatusToBuy:       {},
	store.ItemStatusInProgress:  {},
	store.ItemStatusDone:        {},
	store.ItemStatusUnavailable: {},
	store.ItemStatusSubstituted: {},
}

type dataStore interface {
	CreateUser(ctx context.Context, user store.User) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)

	InsertList(ctx context.Context, list store.List) (store.List, error)
	ListsByOwner(ctx context.Context, ownerID string) ([]store.List, error)
	GetList(ctx context.Context, listID string) (store.List, error)
	UpdateList(ctx context.Context, list store.List) (store.List, error)
	DeleteList(ctx context.Context, listID string) error

	InsertItem(ctx context.Context, item store.Item) (store.Item, error)
	InsertItems(ctx context.Context, items []store.Item) error
	ItemsByList(ctx context.Context, listID string) ([]store.Item, error)
	GetItem(ctx context.Context, itemID string) (store.Item, error)
	UpdateItem(ctx context.Context, item store.Item) (store.Item, error)
	DeleteItem(ctx context.Context, itemID string) error
	DeleteItemsByList(ctx context.Context, listID string) error

	InsertShare(ctx context.Context, share store.Share) (store.Share, error)
	RevokeActiveShares(ctx context.Context, listID string) error
	GetActiveShareByToken(ctx context.Context, token string) (store.Share, error)
	UpdateShareShopkeeper(ctx context.Context, shareID, shopkeeperName string) (store.Share, error)

	Ping(ctx context.Context) error
}

// Broadcaster is the narrow fan-out contract injected top-down so nothing
// in the service depends on a transport.
type Broadcaster interface {
	Notify(ctx context.Context, kind, listID string, payload any)
}

type Service struct {
	cfg         config.Config
	store       dataStore
	accounts    *accounts.Service
	broadcaster Broadcaster
}

func New(cfg config.Config, dataStore *store.PostgresStore, broadcaster Broadcaster) *Service {
	return &Service{
		cfg:         cfg,
		store:       dataStore,
		accounts:    accounts.NewService(dataStore),
		broadcaster: broadcaster,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ── Auth ──

func (s *Service) Register(ctx context.Context, req accounts.RegisterRequest) (store.User, error) {
	return s.accounts.Register(ctx, req)
}

func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), user.ID, user.Email, s.cfg.AccessTTL)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	user, err := s.accounts.Lookup(ctx, claims.Subject)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{UserID: user.ID, Email: user.Email}, nil
}

// ── Ownership guard ──

// resolveOwnedList is the base policy every list and item operation
// composes: the list must exist and the requester must be its owner.
func (s *Service) resolveOwnedList(ctx context.Context, listID, requesterID string) (store.List, error) {
	list, err := s.store.GetList(ctx, listID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.List{}, notFoundError("List not found")
	}
	if err != nil {
		return store.List{}, err
	}
	if list.OwnerID != requesterID {
		return store.List{}, forbiddenError("Access denied")
	}
	return list, nil
}

// ── Lists ──

func (s *Service) CreateList(ctx context.Context, ownerID, name string) (store.List, error) {
	if name == "" {
		return store.List{}, validationError("name is required")
	}
	return s.store.InsertList(ctx, store.List{
		ID:      util.NewID(),
		Name:    name,
		Status:  store.ListStatusDraft,
		OwnerID: ownerID,
	})
}

func (s *Service) Lists(ctx context.Context, ownerID string) ([]store.List, error) {
	return s.store.ListsByOwner(ctx, ownerID)
}

func (s *Service) GetList(ctx context.Context, listID, requesterID string) (store.List, error) {
	return s.resolveOwnedList(ctx, listID, requesterID)
}

// UpdateList applies a partial merge: only provided fields change. The
// merged record is written back whole and a list.updated event is raised.
func (s *Service) UpdateList(ctx context.Context, listID, requesterID string, input UpdateListInput) (store.List, error) {
	list, err := s.resolveOwnedList(ctx, listID, requesterID)
	if err != nil {
		return store.List{}, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return store.List{}, validationError("name must not be empty")
		}
		list.Name = *input.Name
	}
	if input.Status != nil {
		if _, ok := allowedListStatuses[*input.Status]; !ok {
			return store.List{}, validationError("invalid list status")
		}
		list.Status = *input.Status
	}

	updated, err := s.store.UpdateList(ctx, list)
	if err != nil {
		return store.List{}, err
	}

	s.broadcaster.Notify(ctx, realtime.KindListUpdated, listID, updated)
	return updated, nil
}

// DeleteList removes the list's items and then the list record. The two
// deletes are separate statements; an item created concurrently with the
// delete can be orphaned. Known race, kept as-is.
func (s *Service) DeleteList(ctx context.Context, listID, requesterID string) error {
	list, err := s.resolveOwnedList(ctx, listID, requesterID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteItemsByList(ctx, list.ID); err != nil {
		return err
	}
	return s.store.DeleteList(ctx, list.ID)
}

// DuplicateList clones the list as "<name> (Copy)" with copies of every
// item. Item statuses and timestamps reset; the source is not touched.
func (s *Service) DuplicateList(ctx context.Context, listID, requesterID string) (store.List, error) {
	original, err := s.resolveOwnedList(ctx, listID, requesterID)
	if err != nil {
		return store.List{}, err
	}
	items, err := s.store.ItemsByList(ctx, original.ID)
	if err != nil {
		return store.List{}, err
	}

	copied, err := s.store.InsertList(ctx, store.List{
		ID:      util.NewID(),
		Name:    original.Name + " (Copy)",
		Status:  store.ListStatusDraft,
		OwnerID: requesterID,
	})
	if err != nil {
		return store.List{}, err
	}

	clones := make([]store.Item, 0, len(items))
	for _, item := range items {
		clones = append(clones, store.Item{
			ID:       util.NewID(),
			ListID:   copied.ID,
			Name:     item.Name,
			Quantity: item.Quantity,
			Unit:     item.Unit,
			Notes:    item.Notes,
			Status:   store.ItemStatusToBuy,
		})
	}
	if err := s.store.InsertItems(ctx, clones); err != nil {
		return store.List{}, err
	}

	return copied, nil
}

// ── Items ──

func (s *Service) CreateItem(ctx context.Context, listID, requesterID string, input CreateItemInput) (store.Item, error) {
	if _, err := s.resolveOwnedList(ctx, listID, requesterID); err != nil {
		return store.Item{}, err
	}
	if input.Name == "" {
		return store.Item{}, validationError("name is required")
	}
	quantity := 1
	if input.Quantity != nil {
		if *input.Quantity < 1 {
			return store.Item{}, validationError("quantity must be positive")
		}
		quantity = *input.Quantity
	}
	return s.store.InsertItem(ctx, store.Item{
		ID:       util.NewID(),
		ListID:   listID,
		Name:     input.Name,
		Quantity: quantity,
		Unit:     input.Unit,
		Notes:    input.Notes,
		Status:   store.ItemStatusToBuy,
	})
}

func (s *Service) Items(ctx context.Context, listID, requesterID string) ([]store.Item, error) {
	if _, err := s.resolveOwnedList(ctx, listID, requesterID); err != nil {
		return nil, err
	}
	return s.store.ItemsByList(ctx, listID)
}

// resolveItem checks list ownership, then that the item exists and belongs
// to that list. An item id reused under another list must look missing, not
// forbidden, so nothing leaks across lists.
func (s *Service) resolveItem(ctx context.Context, listID, itemID, requesterID string) (store.Item, error) {
	if _, err := s.resolveOwnedList(ctx, listID, requesterID); err != nil {
		return store.Item{}, err
	}
	item, err := s.store.GetItem(ctx, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Item{}, notFoundError("Item not found")
	}
	if err != nil {
		return store.Item{}, err
	}
	if item.ListID != listID {
		return store.Item{}, notFoundError("Item not found")
	}
	return item, nil
}

func (s *Service) GetItem(ctx context.Context, listID, itemID, requesterID string) (store.Item, error) {
	return s.resolveItem(ctx, listID, itemID, requesterID)
}

func (s *Service) UpdateItem(ctx context.Context, listID, itemID, requesterID string, input UpdateItemInput) (store.Item, error) {
	item, err := s.resolveItem(ctx, listID, itemID, requesterID)
	if err != nil {
		return store.Item{}, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return store.Item{}, validationError("name must not be empty")
		}
		item.Name = *input.Name
	}
	if input.Quantity != nil {
		if *input.Quantity < 1 {
			return store.Item{}, validationError("quantity must be positive")
		}
		item.Quantity = *input.Quantity
	}
	if input.Unit != nil {
		item.Unit = *input.Unit
	}
	if input.Notes != nil {
		item.Notes = *input.Notes
	}
	if input.Status != nil {
		if _, ok := allowedItemStatuses[*input.Status]; !ok {
			return store.Item{}, validationError("invalid item status")
		}
		item.Status = *input.Status
	}

	updated, err := s.store.UpdateItem(ctx, item)
	if err != nil {
		return store.Item{}, err
	}

	s.broadcaster.Notify(ctx, realtime.KindItemUpdated, listID, updated)
	return updated, nil
}

func (s *Service) DeleteItem(ctx context.Context, listID, itemID, requesterID string) error {
	item, err := s.resolveItem(ctx, listID, itemID, requesterID)
	if err != nil {
		return err
	}
	return s.store.DeleteItem(ctx, item.ID)
}

// ── Shares ──

// CreateShare issues a fresh delegation token for the list. Any existing
// active share is revoked first so at most one is active. Revoke and insert
// are separate statements; two concurrent creates can each see no active
// share and both insert. Known race, kept as-is.
func (s *Service) CreateShare(ctx context.Context, listID, requesterID, shopkeeperName string) (store.Share, error) {
	list, err := s.resolveOwnedList(ctx, listID, requesterID)
	if err != nil {
		return store.Share{}, err
	}

	if err := s.store.RevokeActiveShares(ctx, list.ID); err != nil {
		return store.Share{}, err
	}

	return s.store.InsertShare(ctx, store.Share{
		ID:             util.NewID(),
		ListID:         list.ID,
		Token:          util.NewShareToken(),
		Status:         store.ShareStatusActive,
		ShopkeeperName: shopkeeperName,
	})
}

// RevokeShare revokes every active share for the list and always raises a
// share.revoked event, whether or not a share was active.
func (s *Service) RevokeShare(ctx context.Context, listID, requesterID string) error {
	list, err := s.resolveOwnedList(ctx, listID, requesterID)
	if err != nil {
		return err
	}
	if err := s.store.RevokeActiveShares(ctx, list.ID); err != nil {
		return err
	}

	s.broadcaster.Notify(ctx, realtime.KindShareRevoked, list.ID, map[string]string{
		"message": "Share link has been revoked",
	})
	return nil
}

// resolveActiveShare looks a share up by token. Invalid and revoked tokens
// are indistinguishable so a revoked link's past existence never leaks.
func (s *Service) resolveActiveShare(ctx context.Context, token string) (store.Share, error) {
	share, err := s.store.GetActiveShareByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Share{}, notFoundError("Share link not found or has been revoked")
	}
	if err != nil {
		return store.Share{}, err
	}
	return share, nil
}

// ResolveShare returns the shared list, its items, and a share summary for
// an anonymous caller holding the token.
func (s *Service) ResolveShare(ctx context.Context, token string) (SharedList, error) {
	share, err := s.resolveActiveShare(ctx, token)
	if err != nil {
		return SharedList{}, err
	}
	list, err := s.store.GetList(ctx, share.ListID)
	if err != nil {
		return SharedList{}, err
	}
	items, err := s.store.ItemsByList(ctx, list.ID)
	if err != nil {
		return SharedList{}, err
	}
	return SharedList{
		List:  list,
		Items: items,
		Share: ShareSummary{Token: share.Token, ShopkeeperName: share.ShopkeeperName},
	}, nil
}

// AcceptShare records the shopkeeper's name on the share. Without a name it
// resolves the share and writes nothing.
func (s *Service) AcceptShare(ctx context.Context, token, shopkeeperName string) (store.Share, error) {
	share, err := s.resolveActiveShare(ctx, token)
	if err != nil {
		return store.Share{}, err
	}
	if shopkeeperName == "" {
		return share, nil
	}
	return s.store.UpdateShareShopkeeper(ctx, share.ID, shopkeeperName)
}

// UpdateListViaShare re-enters the owner's update path on behalf of the
// list's true owner. The token is the entire capability: a delegate can
// change the same fields the owner can.
func (s *Service) UpdateListViaShare(ctx context.Context, token string, input UpdateListInput) (store.List, error) {
	share, err := s.resolveActiveShare(ctx, token)
	if err != nil {
		return store.List{}, err
	}
	list, err := s.store.GetList(ctx, share.ListID)
	if err != nil {
		return store.List{}, err
	}
	return s.UpdateList(ctx, list.ID, list.OwnerID, input)
}

// UpdateItemViaShare is the item-scoped delegated mutation.
func (s *Service) UpdateItemViaShare(ctx context.Context, token, itemID string, input UpdateItemInput) (store.Item, error) {
	share, err := s.resolveActiveShare(ctx, token)
	if err != nil {
		return store.Item{}, err
	}
	list, err := s.store.GetList(ctx, share.ListID)
	if err != nil {
		return store.Item{}, err
	}
	return s.UpdateItem(ctx, list.ID, itemID, list.OwnerID, input)
}

// Package backup exports the whole store as a versioned JSON document and
// restores one atomically.
package backup

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"

	"cafepos/internal/domain"
	"cafepos/internal/share"
	"cafepos/internal/store"
)

const Version = 1

var ErrInvalidFormat = errors.New("invalid backup format")

type Document struct {
	Version   int            `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Data      domain.Dataset `json:"data"`

	// Settings holds the settings fields a parsed document actually carries.
	Settings *domain.SettingsUpdateRequest `json:"-"`
}

// Committer applies a unit of work. *service.Service satisfies it.
type Committer interface {
	Commit(ctx context.Context, uow *store.UnitOfWork) error
}

type Manager struct {
	repo      store.Repository
	committer Committer
	sharer    share.Sharer
	now       func() time.Time
	logger    zerolog.Logger
}

func NewManager(repo store.Repository, committer Committer, sharer share.Sharer) *Manager {
	if committer == nil {
		committer = repo
	}
	return &Manager{
		repo:      repo,
		committer: committer,
		sharer:    sharer,
		now:       time.Now,
		logger:    log.With().Str("component", "backup").Logger(),
	}
}

// Export reads every table in one consistent view.
func (m *Manager) Export(ctx context.Context) (Document, error) {
	data, err := m.repo.Snapshot(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("snapshot: %w", err)
	}
	return Document{
		Version:   Version,
		Timestamp: m.now().UTC().Truncate(time.Millisecond),
		Data:      data,
	}, nil
}

// Marshal encodes doc with two-space indentation.
func Marshal(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// FileName is the export name for a document taken at t.
func FileName(t time.Time) string {
	return "pos_backup_" + t.UTC().Format("2006-01-02") + ".json"
}

// Digest is the hex blake2b-256 of the encoded document.
func Digest(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// envelope checks presence and shape before the typed decode, so a document
// missing data or version is told apart from one holding zero values.
type envelope struct {
	Version json.RawMessage `json:"version"`
	Data    *struct {
		Products json.RawMessage `json:"products"`
		Settings json.RawMessage `json:"settings"`
	} `json:"data"`
}

// Parse validates and decodes a backup document without side effects.
func Parse(content []byte) (Document, error) {
	var env envelope
	if err := json.Unmarshal(content, &env); err != nil {
		return Document{}, fmt.Errorf("%w: could not parse JSON: %v", ErrInvalidFormat, err)
	}
	if env.Data == nil {
		return Document{}, fmt.Errorf("%w: missing data", ErrInvalidFormat)
	}
	if isAbsent(env.Version) {
		return Document{}, fmt.Errorf("%w: missing version", ErrInvalidFormat)
	}
	products := bytes.TrimSpace(env.Data.Products)
	if len(products) == 0 || products[0] != '[' {
		return Document{}, fmt.Errorf("%w: missing inventory data", ErrInvalidFormat)
	}

	var doc Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if doc.Version == 0 {
		return Document{}, fmt.Errorf("%w: missing version", ErrInvalidFormat)
	}

	raw := bytes.TrimSpace(env.Data.Settings)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if raw[0] != '{' {
			return Document{}, fmt.Errorf("%w: settings must be an object", ErrInvalidFormat)
		}
		var patch domain.SettingsUpdateRequest
		if err := json.Unmarshal(raw, &patch); err != nil {
			return Document{}, fmt.Errorf("%w: settings: %v", ErrInvalidFormat, err)
		}
		if err := checkSettings(&patch); err != nil {
			return Document{}, err
		}
		doc.Settings = &patch
	}
	return doc, nil
}

// checkSettings applies the same bounds the settings screen does and trims
// the store name in place.
func checkSettings(p *domain.SettingsUpdateRequest) error {
	if p.StoreName != nil {
		name := strings.TrimSpace(*p.StoreName)
		if name == "" || utf8.RuneCountInString(name) > 80 {
			return fmt.Errorf("%w: settings.store_name must be 1 to 80 characters", ErrInvalidFormat)
		}
		p.StoreName = &name
	}
	if v := p.VatPercentage; v != nil && *v < 0 {
		return fmt.Errorf("%w: settings.vat_percentage must not be negative", ErrInvalidFormat)
	}
	if v := p.SeniorDiscountPercentage; v != nil && (*v < 0 || *v > 100) {
		return fmt.Errorf("%w: settings.senior_discount_percentage must be between 0 and 100", ErrInvalidFormat)
	}
	if v := p.PwdDiscountPercentage; v != nil && (*v < 0 || *v > 100) {
		return fmt.Errorf("%w: settings.pwd_discount_percentage must be between 0 and 100", ErrInvalidFormat)
	}
	return nil
}

// settingsPatch is what a restore of doc writes to the settings row, or nil.
func (doc Document) settingsPatch() (*domain.SettingsUpdateRequest, error) {
	var patch domain.SettingsUpdateRequest
	switch {
	case doc.Settings != nil:
		patch = *doc.Settings
	case doc.Data.Settings != nil:
		st := *doc.Data.Settings
		patch = domain.SettingsUpdateRequest{
			StoreName:                &st.StoreName,
			VatPercentage:            &st.VatPercentage,
			SeniorDiscountPercentage: &st.SeniorDiscountPercentage,
			PwdDiscountPercentage:    &st.PwdDiscountPercentage,
		}
	default:
		return nil, nil
	}
	if err := checkSettings(&patch); err != nil {
		return nil, err
	}
	return &patch, nil
}

func isAbsent(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	return len(v) == 0 || bytes.Equal(v, []byte("null")) || bytes.Equal(v, []byte("0")) ||
		bytes.Equal(v, []byte(`""`)) || bytes.Equal(v, []byte("false"))
}

// Preview reports what a restore of doc would write.
func Preview(doc Document) domain.RestorePreview {
	return domain.RestorePreview{
		Version:     doc.Version,
		Timestamp:   doc.Timestamp,
		Products:    len(doc.Data.Products),
		Categories:  len(doc.Data.Categories),
		Sales:       len(doc.Data.Sales),
		SaleItems:   len(doc.Data.SaleItems),
		HasSettings: doc.Data.Settings != nil || doc.Settings != nil,
	}
}

// Restore replaces every table with the document's rows in one unit of
// work: children are cleared before parents and parents inserted before
// children. Settings fields the document carries are merged into the stored
// row; the others keep their current values.
func (m *Manager) Restore(ctx context.Context, doc Document) (domain.RestorePreview, error) {
	patch, err := doc.settingsPatch()
	if err != nil {
		return domain.RestorePreview{}, err
	}

	uow := store.NewUnitOfWork()
	for _, table := range store.ClearOrder {
		uow.Add(store.ClearTable{Table: table})
	}
	for _, c := range doc.Data.Categories {
		uow.Add(store.InsertCategory{Category: c})
	}
	for _, p := range doc.Data.Products {
		if p.StockQty < 0 {
			p.StockQty = 0
		}
		uow.Add(store.InsertProduct{Product: p})
	}
	for _, s := range doc.Data.Sales {
		s.Items = nil
		uow.Add(store.InsertSale{Sale: s})
	}
	for _, item := range doc.Data.SaleItems {
		uow.Add(store.InsertSaleItem{Item: item})
	}
	if patch != nil {
		uow.Add(store.PatchSettings{Patch: *patch})
	}

	if err := m.committer.Commit(ctx, uow); err != nil {
		return domain.RestorePreview{}, fmt.Errorf("restore: %w", err)
	}

	preview := Preview(doc)
	preview.Applied = true
	m.logger.Info().
		Int("products", preview.Products).
		Int("sales", preview.Sales).
		Int("sale_items", preview.SaleItems).
		Msg("backup restored")
	return preview, nil
}

// Import parses content and restores it only when confirmed; otherwise it
// returns the preview untouched.
func (m *Manager) Import(ctx context.Context, content []byte, confirm bool) (domain.RestorePreview, error) {
	doc, err := Parse(content)
	if err != nil {
		return domain.RestorePreview{}, err
	}
	if !confirm {
		return Preview(doc), nil
	}
	return m.Restore(ctx, doc)
}

type Shared struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Digest   string `json:"digest"`
}

// Share exports the store and hands the document to the sharing collaborator.
func (m *Manager) Share(ctx context.Context) (Shared, error) {
	if m.sharer == nil {
		return Shared{}, fmt.Errorf("no sharing target configured: %w", store.ErrInvalid)
	}
	doc, err := m.Export(ctx)
	if err != nil {
		return Shared{}, err
	}
	content, err := Marshal(doc)
	if err != nil {
		return Shared{}, err
	}
	name := FileName(doc.Timestamp)
	location, err := m.sharer.Share(ctx, name, content)
	if err != nil {
		return Shared{}, fmt.Errorf("share %s: %w", name, err)
	}
	return Shared{Name: name, Location: location, Digest: Digest(content)}, nil
}

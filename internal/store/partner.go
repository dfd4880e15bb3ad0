package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/fairshare/internal/model"
)

type PartnerStore struct {
	db *sql.DB
}

func NewPartnerStore(db *sql.DB) *PartnerStore {
	return &PartnerStore{db: db}
}

const partnerCols = "id, name, color, accent, invite_code, favorites, condition, pin IS NOT NULL, sort_order, created_at, updated_at"

func scanPartner(sc scanner) (*model.Partner, error) {
	var p model.Partner
	var favorites string
	if err := sc.Scan(&p.ID, &p.Name, &p.Color, &p.Accent, &p.InviteCode, &favorites, &p.Condition, &p.HasPIN, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(favorites), &p.Favorites); err != nil {
		return nil, fmt.Errorf("decode favorites: %w", err)
	}
	return &p, nil
}

// Upsert inserts a partner or refreshes the roster fields of an existing one.
// The PIN is never touched.
func (s *PartnerStore) Upsert(p model.Partner) (*model.Partner, error) {
	favorites := p.Favorites
	if favorites == nil {
		favorites = []string{}
	}
	encoded, err := json.Marshal(favorites)
	if err != nil {
		return nil, fmt.Errorf("encode favorites: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO partners (id, name, color, accent, invite_code, favorites, condition, sort_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, color = excluded.color, accent = excluded.accent,
		   invite_code = excluded.invite_code, favorites = excluded.favorites,
		   condition = excluded.condition, sort_order = excluded.sort_order,
		   updated_at = CURRENT_TIMESTAMP`,
		p.ID, p.Name, p.Color, p.Accent, p.InviteCode, string(encoded), p.Condition, p.SortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert partner: %w", err)
	}
	return s.GetByID(p.ID)
}

func (s *PartnerStore) List() ([]model.Partner, error) {
	rows, err := s.db.Query("SELECT " + partnerCols + " FROM partners ORDER BY sort_order, id")
	if err != nil {
		return nil, fmt.Errorf("query partners: %w", err)
	}
	defer rows.Close()

	var partners []model.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		partners = append(partners, *p)
	}
	return partners, rows.Err()
}

func (s *PartnerStore) GetByID(id string) (*model.Partner, error) {
	p, err := scanPartner(s.db.QueryRow("SELECT "+partnerCols+" FROM partners WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query partner: %w", err)
	}
	return p, nil
}

// IDs returns every partner id in roster order.
func (s *PartnerStore) IDs() ([]string, error) {
	partners, err := s.List()
	if err != nil {
		return nil, err
	}
	return model.PartnerIDs(partners), nil
}

func (s *PartnerStore) SetPIN(id, hashedPIN string) error {
	_, err := s.db.Exec("UPDATE partners SET pin = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", hashedPIN, id)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *PartnerStore) ClearPIN(id string) error {
	_, err := s.db.Exec("UPDATE partners SET pin = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

// GetPINHash returns the stored hash, or "" when no PIN is set.
func (s *PartnerStore) GetPINHash(id string) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRow("SELECT pin FROM partners WHERE id = ?", id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get pin hash: %w", err)
	}
	return hash.String, nil
}

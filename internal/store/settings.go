package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/albumvault/catalogd/internal/apperr"
)

// GetSetting loads a single setting by key.
func (s *Store) GetSetting(ctx context.Context, key string) (Setting, error) {
	var st Setting
	err := s.db.GetContext(ctx, &st, `SELECT * FROM settings WHERE key = $1`, key)
	if err != nil {
		return Setting{}, apperr.NotFound("store: setting not found")
	}
	return st, nil
}

// SetSetting upserts a JSON-encoded value under key/category.
func (s *Store) SetSetting(ctx context.Context, key string, value any, category string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return apperr.InputInvalid("store: setting value is not JSON-serializable")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, category, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value, category = EXCLUDED.category, updated_at = now()
	`, key, raw, category)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: set_setting", err)
	}
	return nil
}

// GetSettingsByCategory lists every setting in one category.
func (s *Store) GetSettingsByCategory(ctx context.Context, category string) ([]Setting, error) {
	var rows []Setting
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM settings WHERE category = $1 ORDER BY key`, category)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "store: get_settings_by_category", err)
	}
	return rows, nil
}

// SettingInt reads key as a JSON number, returning fallback if the
// setting is unset or not numeric. Components poll hot-reloadable
// tunables through this accessor at their own next-task boundary.
func (s *Store) SettingInt(ctx context.Context, key string, fallback int) int {
	st, err := s.GetSetting(ctx, key)
	if err != nil {
		return fallback
	}
	var v float64
	if err := json.Unmarshal(st.Value, &v); err != nil {
		return fallback
	}
	return int(v)
}

// SettingFloat reads key as a JSON number, returning fallback if the
// setting is unset or not numeric.
func (s *Store) SettingFloat(ctx context.Context, key string, fallback float64) float64 {
	st, err := s.GetSetting(ctx, key)
	if err != nil {
		return fallback
	}
	var v float64
	if err := json.Unmarshal(st.Value, &v); err != nil {
		return fallback
	}
	return v
}

// SettingBool reads key as a JSON boolean, returning fallback if the
// setting is unset or not boolean.
func (s *Store) SettingBool(ctx context.Context, key string, fallback bool) bool {
	st, err := s.GetSetting(ctx, key)
	if err != nil {
		return fallback
	}
	var v bool
	if err := json.Unmarshal(st.Value, &v); err != nil {
		return fallback
	}
	return v
}

// GetAdminAuth loads the single admin credential record, if one exists.
func (s *Store) GetAdminAuth(ctx context.Context) (AdminAuth, error) {
	var a AdminAuth
	err := s.db.GetContext(ctx, &a, `SELECT * FROM admin_auth ORDER BY id LIMIT 1`)
	if err != nil {
		return AdminAuth{}, apperr.NotFound("store: admin auth not configured")
	}
	return a, nil
}

// CreateAdminAuth installs the initial (and only) admin credential
// record. Callers must ensure none exists first; the unique partial
// index on admin_auth enforces at most one row regardless.
func (s *Store) CreateAdminAuth(ctx context.Context, passwordHash, salt string) (AdminAuth, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return AdminAuth{}, apperr.Fatal("store: begin create_admin_auth tx", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM admin_auth`); err != nil {
		return AdminAuth{}, apperr.Wrap(apperr.KindTransient, "store: check admin_auth count", err)
	}
	if existing > 0 {
		return AdminAuth{}, apperr.Conflict("store: admin auth already configured")
	}

	var a AdminAuth
	err = tx.GetContext(ctx, &a, `
		INSERT INTO admin_auth (password_hash, salt, created_at, failed_attempts)
		VALUES ($1, $2, now(), 0)
		RETURNING *`, passwordHash, salt)
	if err != nil {
		return AdminAuth{}, apperr.Wrap(apperr.KindTransient, "store: insert admin_auth", err)
	}

	if err := tx.Commit(); err != nil {
		return AdminAuth{}, apperr.Wrap(apperr.KindTransient, "store: commit create_admin_auth", err)
	}
	return a, nil
}

// UpdateAdminPassword replaces the stored hash/salt and clears lockout
// state, matching a successful password-reset flow.
func (s *Store) UpdateAdminPassword(ctx context.Context, id int64, passwordHash, salt string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE admin_auth SET
			password_hash = $1, salt = $2, failed_attempts = 0, lockout_until = NULL
		WHERE id = $3`, passwordHash, salt, id)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: update_admin_password", err)
	}
	return nil
}

// RecordLoginSuccess clears failed-attempt state and stamps last_login.
func (s *Store) RecordLoginSuccess(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE admin_auth SET failed_attempts = 0, lockout_until = NULL, last_login = now()
		WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: record_login_success", err)
	}
	return nil
}

// RecordLoginFailure increments the failed-attempt counter and, when it
// reaches threshold, sets lockout_until to now()+lockoutFor.
func (s *Store) RecordLoginFailure(ctx context.Context, id int64, threshold int, lockoutFor time.Duration) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Fatal("store: begin record_login_failure tx", err)
	}
	defer tx.Rollback()

	var attempts int
	if err := tx.GetContext(ctx, &attempts, `
		UPDATE admin_auth SET failed_attempts = failed_attempts + 1
		WHERE id = $1 RETURNING failed_attempts`, id); err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: increment failed_attempts", err)
	}

	if attempts >= threshold {
		lockUntil := time.Now().Add(lockoutFor)
		if _, err := tx.ExecContext(ctx, `
			UPDATE admin_auth SET lockout_until = $1 WHERE id = $2`, lockUntil, id); err != nil {
			return apperr.Wrap(apperr.KindTransient, "store: set lockout", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: commit record_login_failure", err)
	}
	return nil
}

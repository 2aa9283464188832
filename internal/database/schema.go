package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Both schemas describe the same tables.  Keep them in step: every table,
// unique key and CHECK constraint in one must exist in the other.
//
// Uniqueness is what the allocation logic relies on:
//   - ship_role_templates (ship_id, role_name) rejects duplicate roles;
//   - role_slots (ship_id, role_name, seat_index) is the authoritative
//     guard against provisioning the same seat twice;
//   - active_operation is pinned to a single row (slot = 1), so at most
//     one operation can be active.

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(150) NOT NULL,
		email VARCHAR(254) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		is_superuser TINYINT(1) NOT NULL DEFAULT 0,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS user_groups (
		user_id BIGINT UNSIGNED NOT NULL,
		group_name VARCHAR(80) NOT NULL,
		PRIMARY KEY (user_id, group_name),
		CONSTRAINT fk_user_groups_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ships (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(80) NOT NULL,
		manufacturer VARCHAR(120) NOT NULL DEFAULT '',
		role VARCHAR(120) NOT NULL DEFAULT '',
		cargo_capacity VARCHAR(40) NOT NULL DEFAULT '-',
		category VARCHAR(3) NOT NULL DEFAULT 'MR',
		min_crew SMALLINT UNSIGNED NOT NULL DEFAULT 1,
		max_crew SMALLINT UNSIGNED NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_ships_name (name),
		CONSTRAINT ck_ships_crew CHECK (min_crew <= max_crew)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ship_role_templates (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		ship_id BIGINT UNSIGNED NOT NULL,
		role_name VARCHAR(40) NOT NULL,
		slots SMALLINT UNSIGNED NOT NULL DEFAULT 1,
		UNIQUE KEY uq_templates_ship_role (ship_id, role_name),
		CONSTRAINT ck_templates_slots CHECK (slots BETWEEN 1 AND 64),
		CONSTRAINT fk_templates_ship FOREIGN KEY (ship_id) REFERENCES ships(id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS role_slots (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		ship_id BIGINT UNSIGNED NOT NULL,
		role_name VARCHAR(40) NOT NULL,
		seat_index SMALLINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'open',
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_role_slots_seat (ship_id, role_name, seat_index),
		CONSTRAINT ck_role_slots_status CHECK (status IN ('open', 'assigned', 'confirmed')),
		CONSTRAINT fk_role_slots_ship FOREIGN KEY (ship_id) REFERENCES ships(id) ON DELETE RESTRICT,
		CONSTRAINT fk_role_slots_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS operations (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(120) NOT NULL,
		description TEXT NOT NULL,
		highlighted_ship_id BIGINT UNSIGNED NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY ix_operations_updated (updated_at),
		CONSTRAINT fk_operations_ship FOREIGN KEY (highlighted_ship_id) REFERENCES ships(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS active_operation (
		slot TINYINT UNSIGNED NOT NULL PRIMARY KEY,
		operation_id BIGINT UNSIGNED NOT NULL,
		activated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_active_operation (operation_id),
		CONSTRAINT ck_active_operation_slot CHECK (slot = 1),
		CONSTRAINT fk_active_operation FOREIGN KEY (operation_id) REFERENCES operations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS operation_highlighted_ships (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		operation_id BIGINT UNSIGNED NOT NULL,
		ship_id BIGINT UNSIGNED NOT NULL,
		UNIQUE KEY uq_highlighted_ship (operation_id, ship_id),
		CONSTRAINT fk_highlighted_operation FOREIGN KEY (operation_id) REFERENCES operations(id) ON DELETE CASCADE,
		CONSTRAINT fk_highlighted_ship FOREIGN KEY (ship_id) REFERENCES ships(id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS operation_highlighted_crew (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		highlighted_ship_id BIGINT UNSIGNED NOT NULL,
		role VARCHAR(16) NOT NULL,
		crew_name VARCHAR(80) NOT NULL,
		sort_order INT NOT NULL DEFAULT 0,
		KEY ix_highlighted_crew_order (highlighted_ship_id, role, sort_order),
		CONSTRAINT ck_highlighted_crew_role CHECK (role IN ('gunner', 'infantry', 'pilot', 'torpedo')),
		CONSTRAINT fk_highlighted_crew FOREIGN KEY (highlighted_ship_id) REFERENCES operation_highlighted_ships(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		is_superuser INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS user_groups (
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		group_name TEXT NOT NULL,
		PRIMARY KEY (user_id, group_name)
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS ships (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		manufacturer TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		cargo_capacity TEXT NOT NULL DEFAULT '-',
		category TEXT NOT NULL DEFAULT 'MR',
		min_crew INTEGER NOT NULL DEFAULT 1 CHECK (min_crew >= 0),
		max_crew INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK (min_crew <= max_crew)
	)`,
	`CREATE TABLE IF NOT EXISTS ship_role_templates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ship_id INTEGER NOT NULL REFERENCES ships(id) ON DELETE RESTRICT,
		role_name TEXT NOT NULL,
		slots INTEGER NOT NULL DEFAULT 1 CHECK (slots BETWEEN 1 AND 64),
		UNIQUE (ship_id, role_name)
	)`,
	`CREATE TABLE IF NOT EXISTS role_slots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ship_id INTEGER NOT NULL REFERENCES ships(id) ON DELETE RESTRICT,
		role_name TEXT NOT NULL,
		seat_index INTEGER NOT NULL,
		user_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
		status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'assigned', 'confirmed')),
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (ship_id, role_name, seat_index)
	)`,
	`CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		highlighted_ship_id INTEGER REFERENCES ships(id) ON DELETE SET NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS ix_operations_updated ON operations (updated_at)`,
	`CREATE TABLE IF NOT EXISTS active_operation (
		slot INTEGER NOT NULL PRIMARY KEY CHECK (slot = 1),
		operation_id INTEGER NOT NULL UNIQUE REFERENCES operations(id) ON DELETE CASCADE,
		activated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS operation_highlighted_ships (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation_id INTEGER NOT NULL REFERENCES operations(id) ON DELETE CASCADE,
		ship_id INTEGER NOT NULL REFERENCES ships(id) ON DELETE RESTRICT,
		UNIQUE (operation_id, ship_id)
	)`,
	`CREATE TABLE IF NOT EXISTS operation_highlighted_crew (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		highlighted_ship_id INTEGER NOT NULL REFERENCES operation_highlighted_ships(id) ON DELETE CASCADE,
		role TEXT NOT NULL CHECK (role IN ('gunner', 'infantry', 'pilot', 'torpedo')),
		crew_name TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS ix_highlighted_crew_order ON operation_highlighted_crew (highlighted_ship_id, role, sort_order)`,
}

// Schema returns the DDL statements for driver, one statement per entry.
// The MySQL driver rejects multi-statement strings unless multiStatements
// is set on the DSN, so statements are executed one at a time.
func Schema(driver string) ([]string, error) {
	switch driver {
	case DriverMySQL:
		return mysqlSchema, nil
	case DriverSQLite:
		return sqliteSchema, nil
	}
	return nil, fmt.Errorf("unsupported driver %q", driver)
}

// Migrate creates every table that does not exist yet.  It is idempotent.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	stmts, err := Schema(driver)
	if err != nil {
		return err
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}

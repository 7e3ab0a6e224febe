package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on startup; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    name          VARCHAR(120) NOT NULL DEFAULT '',
    email         VARCHAR(255) NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    created_at    DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
    updated_at    DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
    UNIQUE KEY uq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
    id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    user_id          BIGINT UNSIGNED NOT NULL,
    pnr              CHAR(6) NOT NULL,
    passengers       JSON NOT NULL,
    seats            JSON NOT NULL,
    cabin_class      VARCHAR(32) NOT NULL DEFAULT 'economy',
    amount_minor     BIGINT NOT NULL,
    currency         CHAR(3) NOT NULL DEFAULT 'INR',
    extra_legroom    TINYINT(1) NOT NULL DEFAULT 0,
    extra_luggage_kg INT NOT NULL DEFAULT 0,
    payment_status   ENUM('pending','paid','failed') NOT NULL DEFAULT 'pending',
    booking_status   ENUM('confirmed','cancelled') NOT NULL DEFAULT 'confirmed',
    flight           JSON NOT NULL,
    created_at       DATETIME(3) NOT NULL,
    updated_at       DATETIME(3) NOT NULL,
    UNIQUE KEY uq_bookings_pnr (pnr),
    KEY idx_bookings_user_created (user_id, created_at),
    CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users (id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS flight_status_trackers (
    id                       BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    booking_id               BIGINT UNSIGNED NOT NULL,
    flight_iata              VARCHAR(16) NOT NULL DEFAULT '',
    scheduled_departure_date DATE NULL,
    last_status              VARCHAR(64) NOT NULL DEFAULT 'unknown',
    last_payload             JSON NULL,
    last_checked_at          DATETIME(3) NOT NULL,
    UNIQUE KEY uq_trackers_booking (booking_id),
    KEY idx_trackers_checked (last_checked_at),
    CONSTRAINT fk_trackers_booking FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the tables the service needs if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

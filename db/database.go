package db

import (
	"database/sql"
	"fmt"
	"log"

	"BeatStudio/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
// News tables are migrated separately through GORM (see gorm.go).
func InitDB() error {
	stmts := []struct {
		name  string
		query string
	}{
		{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(100) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			phone VARCHAR(20),
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		);`},
		{"beats", `
		CREATE TABLE IF NOT EXISTS beats (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			title VARCHAR(255) NOT NULL,
			genre VARCHAR(100),
			bpm INT,
			price BIGINT NOT NULL DEFAULT 0,
			file_path VARCHAR(767) NOT NULL,
			cover_path VARCHAR(767),
			play_count BIGINT NOT NULL DEFAULT 0,
			state TINYINT NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			CONSTRAINT fk_user_beats FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);`},
		{"beat_purchases", `
		CREATE TABLE IF NOT EXISTS beat_purchases (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			beat_id BIGINT NOT NULL,
			provider VARCHAR(50),
			payment_id VARCHAR(100),
			payment_status VARCHAR(50),
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			paid_at TIMESTAMP NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			CONSTRAINT uq_user_beat_purchase UNIQUE (user_id, beat_id),
			CONSTRAINT fk_user_purchases FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			CONSTRAINT fk_beat_purchases FOREIGN KEY (beat_id) REFERENCES beats(id) ON DELETE CASCADE,
			INDEX idx_purchase_payment_id (payment_id)
		);`},
		{"beat_cart", `
		CREATE TABLE IF NOT EXISTS beat_cart (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			beat_id BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uq_user_beat_cart UNIQUE (user_id, beat_id),
			CONSTRAINT fk_user_cart FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			CONSTRAINT fk_beat_cart FOREIGN KEY (beat_id) REFERENCES beats(id) ON DELETE CASCADE
		);`},
		{"beat_favorites", `
		CREATE TABLE IF NOT EXISTS beat_favorites (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			beat_id BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uq_user_beat_favorite UNIQUE (user_id, beat_id),
			CONSTRAINT fk_user_favorites FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			CONSTRAINT fk_beat_favorites FOREIGN KEY (beat_id) REFERENCES beats(id) ON DELETE CASCADE
		);`},
		{"studio_bookings", `
		CREATE TABLE IF NOT EXISTS studio_bookings (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NULL,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(20) NOT NULL,
			email VARCHAR(255),
			date VARCHAR(10) NOT NULL,
			time_slot VARCHAR(50),
			service_type VARCHAR(50),
			with_engineer TINYINT(1) NOT NULL DEFAULT 0,
			need_mixing TINYINT(1) NOT NULL DEFAULT 0,
			comment TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'new',
			recording_id BIGINT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			CONSTRAINT fk_user_bookings FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);`},
		{"user_recordings", `
		CREATE TABLE IF NOT EXISTS user_recordings (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			recording_type VARCHAR(50) NOT NULL,
			music_style VARCHAR(100),
			price BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			provider VARCHAR(50),
			payment_id VARCHAR(100),
			payment_status VARCHAR(50),
			paid_at TIMESTAMP NULL,
			beat_id BIGINT NULL,
			booking_id BIGINT NULL,
			track_path VARCHAR(767),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			CONSTRAINT fk_user_recordings FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			INDEX idx_recording_payment_id (payment_id)
		);`},
		{"chat_messages", `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			sender_role VARCHAR(20) NOT NULL,
			content TEXT NOT NULL,
			read_by_user TINYINT(1) NOT NULL DEFAULT 0,
			read_by_staff TINYINT(1) NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_user_chat FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			INDEX idx_chat_user (user_id, created_at)
		);`},
	}

	for _, s := range stmts {
		if _, err := DB.Exec(s.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", s.name, err)
		}
	}

	log.Println("Database initialization completed.")
	return nil
}

package database

// Schema creates every table used by the tool. Statements are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS match_audits (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		target VARCHAR(255) NOT NULL,
		zone VARCHAR(16) NOT NULL,
		center_x INT,
		center_y INT,
		confidence DOUBLE NOT NULL DEFAULT 0,
		found BOOLEAN NOT NULL DEFAULT FALSE,
		clicked BOOLEAN NOT NULL DEFAULT FALSE,
		error TEXT,
		zone_image LONGBLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_match_audits_target (target)
	)`,
	`CREATE TABLE IF NOT EXISTS recordings (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		session_id CHAR(36) NOT NULL UNIQUE,
		duration DOUBLE NOT NULL,
		sample_rate DOUBLE NOT NULL,
		total_points INT NOT NULL,
		avg_velocity DOUBLE NOT NULL,
		max_velocity DOUBLE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS recording_samples (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		recording_id BIGINT NOT NULL,
		seq INT NOT NULL,
		x DOUBLE NOT NULL,
		y DOUBLE NOT NULL,
		t DOUBLE NOT NULL,
		FOREIGN KEY (recording_id) REFERENCES recordings(id) ON DELETE CASCADE
	)`,
}

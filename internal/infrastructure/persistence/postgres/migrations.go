// Package postgres implements the PostgreSQL persistence layer for Cortex
// Study Hub.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE USERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create users table
-- Version: 001

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    display_name VARCHAR(100) NOT NULL,
    timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
    last_session_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    deleted_at TIMESTAMP WITH TIME ZONE,

    -- Analytics and coaching preferences (JSONB for flexibility)
    settings JSONB NOT NULL DEFAULT '{
        "weekly_goal_minutes": 600,
        "weekly_target_minutes": 1200,
        "coaching_enabled": true,
        "nudges_enabled": true,
        "daily_brief_enabled": true
    }'::jsonb
);

CREATE INDEX IF NOT EXISTS idx_users_last_session_at ON users(last_session_at);
CREATE INDEX IF NOT EXISTS idx_users_active ON users(id) WHERE deleted_at IS NULL;

-- Updated_at trigger function for automatic timestamp updates
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_users_updated_at ON users;
CREATE TRIGGER update_users_updated_at
    BEFORE UPDATE ON users
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration001Down = `
DROP TRIGGER IF EXISTS update_users_updated_at ON users;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE STUDY
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create study session and memory text tables
-- Version: 002

CREATE TABLE IF NOT EXISTS study_sessions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    subject VARCHAR(120) NOT NULL,
    topic VARCHAR(200) NOT NULL DEFAULT '',
    started_at TIMESTAMP WITH TIME ZONE NOT NULL,
    minutes INTEGER NOT NULL,
    effectiveness INTEGER NOT NULL DEFAULT 0,
    note TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_minutes CHECK (minutes > 0 AND minutes <= 1440),
    CONSTRAINT valid_effectiveness CHECK (effectiveness >= 0 AND effectiveness <= 10)
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_started ON study_sessions(user_id, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_user_subject ON study_sessions(user_id, subject);

-- Free-form notes mined by the semantic thread extractor
CREATE TABLE IF NOT EXISTS memory_texts (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    body TEXT NOT NULL,
    source_session_id UUID REFERENCES study_sessions(id) ON DELETE SET NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_memory_texts_user_created ON memory_texts(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_memory_texts_created ON memory_texts(created_at);
`

const migration002Down = `
DROP TABLE IF EXISTS memory_texts;
DROP TABLE IF EXISTS study_sessions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE EXAMS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create exam and alert log tables
-- Version: 003

CREATE TABLE IF NOT EXISTS exams (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    subject VARCHAR(120) NOT NULL,
    title VARCHAR(200) NOT NULL,
    exam_date TIMESTAMP WITH TIME ZONE NOT NULL,
    topics TEXT[] NOT NULL DEFAULT '{}',

    -- Cached threat assessment, refreshed after every session and hourly
    threat_level VARCHAR(10) NOT NULL DEFAULT 'NONE',
    progress INTEGER NOT NULL DEFAULT 0,
    predicted_outcome VARCHAR(40) NOT NULL DEFAULT '',
    gap_analysis TEXT[] NOT NULL DEFAULT '{}',
    recommended_hours_total INTEGER NOT NULL DEFAULT 0,
    recommended_hours_daily INTEGER NOT NULL DEFAULT 0,
    threat_calculated_at TIMESTAMP WITH TIME ZONE,

    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_threat_level CHECK (threat_level IN ('NONE', 'LOW', 'MEDIUM', 'HIGH', 'CRITICAL')),
    CONSTRAINT valid_progress CHECK (progress >= 0 AND progress <= 100)
);

CREATE INDEX IF NOT EXISTS idx_exams_user_date ON exams(user_id, exam_date);
CREATE INDEX IF NOT EXISTS idx_exams_date ON exams(exam_date);

DROP TRIGGER IF EXISTS update_exams_updated_at ON exams;
CREATE TRIGGER update_exams_updated_at
    BEFORE UPDATE ON exams
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();

-- One row per exam per alert threshold keeps the hourly job idempotent
CREATE TABLE IF NOT EXISTS exam_alert_log (
    exam_id UUID NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
    threshold_days INTEGER NOT NULL,
    sent_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (exam_id, threshold_days)
);
`

const migration003Down = `
DROP TABLE IF EXISTS exam_alert_log;
DROP TRIGGER IF EXISTS update_exams_updated_at ON exams;
DROP TABLE IF EXISTS exams;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE MASTERY
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create topic mastery table
-- Version: 004

CREATE TABLE IF NOT EXISTS topic_mastery (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    subject VARCHAR(120) NOT NULL,
    topic VARCHAR(200) NOT NULL,
    score INTEGER NOT NULL DEFAULT 25,
    confidence INTEGER NOT NULL DEFAULT 50,
    session_count INTEGER NOT NULL DEFAULT 0,
    last_studied_at TIMESTAMP WITH TIME ZONE,

    -- SM-2 spaced repetition state
    easiness DECIMAL(4,2) NOT NULL DEFAULT 2.50,
    interval_days INTEGER NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    next_review_at TIMESTAMP WITH TIME ZONE,

    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_score CHECK (score >= 0 AND score <= 100),
    CONSTRAINT valid_confidence CHECK (confidence >= 0 AND confidence <= 100),
    CONSTRAINT valid_easiness CHECK (easiness >= 1.3)
);

-- Case-insensitive identity: one row per (user, subject, topic)
CREATE UNIQUE INDEX IF NOT EXISTS idx_mastery_identity
    ON topic_mastery(user_id, LOWER(subject), LOWER(topic));

CREATE INDEX IF NOT EXISTS idx_mastery_user ON topic_mastery(user_id);
CREATE INDEX IF NOT EXISTS idx_mastery_weak ON topic_mastery(user_id, score) WHERE score < 50;
CREATE INDEX IF NOT EXISTS idx_mastery_due ON topic_mastery(user_id, next_review_at);

DROP TRIGGER IF EXISTS update_mastery_updated_at ON topic_mastery;
CREATE TRIGGER update_mastery_updated_at
    BEFORE UPDATE ON topic_mastery
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration004Down = `
DROP TRIGGER IF EXISTS update_mastery_updated_at ON topic_mastery;
DROP TABLE IF EXISTS topic_mastery;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 005: CREATE COACHING
// ══════════════════════════════════════════════════════════════════════════════

const migration005Up = `
-- Migration: Create coaching messages table
-- Version: 005

CREATE TABLE IF NOT EXISTS coaching_messages (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    message_type VARCHAR(30) NOT NULL,
    priority VARCHAR(10) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    title VARCHAR(300) NOT NULL,
    body TEXT NOT NULL DEFAULT '',
    actions JSONB NOT NULL DEFAULT '[]'::jsonb,
    total_minutes INTEGER NOT NULL DEFAULT 0,
    daily_minutes INTEGER NOT NULL DEFAULT 0,
    predicted_gain INTEGER NOT NULL DEFAULT 0,
    breakdown TEXT[] NOT NULL DEFAULT '{}',
    expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_message_type CHECK (message_type IN (
        'exam_prep', 'drift_recovery', 'momentum', 'consistency',
        'daily_brief', 'exam_alert', 'nudge'
    )),
    CONSTRAINT valid_priority CHECK (priority IN ('high', 'medium', 'low')),
    CONSTRAINT valid_message_status CHECK (status IN ('active', 'dismissed', 'completed'))
);

CREATE INDEX IF NOT EXISTS idx_coaching_user_status ON coaching_messages(user_id, status) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_coaching_expires ON coaching_messages(expires_at);
CREATE INDEX IF NOT EXISTS idx_coaching_user_created ON coaching_messages(user_id, created_at DESC);

DROP TRIGGER IF EXISTS update_coaching_updated_at ON coaching_messages;
CREATE TRIGGER update_coaching_updated_at
    BEFORE UPDATE ON coaching_messages
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration005Down = `
DROP TRIGGER IF EXISTS update_coaching_updated_at ON coaching_messages;
DROP TABLE IF EXISTS coaching_messages;
`

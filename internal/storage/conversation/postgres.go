// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lisa-assistant/internal/model/llm"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversation_messages (
	session_key  TEXT        NOT NULL,
	seq          BIGINT      NOT NULL,
	role         TEXT        NOT NULL,
	content      TEXT        NOT NULL DEFAULT '',
	tool_calls   JSONB,
	tool_call_id TEXT        NOT NULL DEFAULT '',
	name         TEXT        NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_key, seq)
)`

// PostgresStore 一行一条消息，seq 在会话内单调递增
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 连接并建表
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s := &PostgresStore{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema 建表（幂等）
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// Append 在事务内按会话加 advisory lock 取下一个 seq，批量插入
func (s *PostgresStore) Append(ctx context.Context, key string, msgs ...llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	var next int64
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM conversation_messages WHERE session_key = $1`, key).Scan(&next); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, m := range msgs {
		var toolCalls []byte
		if len(m.ToolCalls) > 0 {
			if toolCalls, err = json.Marshal(m.ToolCalls); err != nil {
				return err
			}
		}
		batch.Queue(
			`INSERT INTO conversation_messages (session_key, seq, role, content, tool_calls, tool_call_id, name)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			key, next+int64(i), m.Role, m.Content, toolCalls, m.ToolCallID, m.Name)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert messages: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Read(ctx context.Context, key string) ([]llm.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role, content, tool_calls, tool_call_id, name
		 FROM conversation_messages WHERE session_key = $1 ORDER BY seq ASC`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]llm.Message, 0)
	for rows.Next() {
		var m llm.Message
		var toolCalls []byte
		if err := rows.Scan(&m.Role, &m.Content, &toolCalls, &m.ToolCallID, &m.Name); err != nil {
			return nil, err
		}
		if len(toolCalls) > 0 {
			if err := json.Unmarshal(toolCalls, &m.ToolCalls); err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM conversation_messages WHERE session_key = $1`, key)
	return err
}

func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversation_messages WHERE session_key = $1)`, key).Scan(&ok)
	return ok, err
}

// Close 关闭连接池
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

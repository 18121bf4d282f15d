package goextractor

import "testing"

func TestExtractStorage(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "create and alter table",
			src:  "package db\n\nconst schema = `CREATE TABLE IF NOT EXISTS users (id INT);\nALTER TABLE users ADD COLUMN name TEXT;`\n",
			want: []string{"sql_table:users"},
		},
		{
			name: "select with driver import",
			src: `package repo

import "database/sql"

func GetUsers(db *sql.DB) {
	db.Query("SELECT id, name FROM Accounts WHERE active = true")
}
`,
			want: []string{"database:sql", "sql_table:accounts"},
		},
		{
			name: "insert update delete",
			src: `package repo

const (
	insert = "INSERT INTO orders (id) VALUES ($1)"
	update = "UPDATE orders SET status = $1"
	remove = "DELETE FROM order_items WHERE id = $1"
)
`,
			want: []string{"sql_table:orders", "sql_table:order_items"},
		},
		{
			name: "postgres driver and s3 client",
			src: `package storage

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5"
)

type Blobs struct {
	client *s3.Client
	conn   *pgx.Conn
}
`,
			want: []string{"database:postgres", "s3_storage"},
		},
		{
			name: "no storage",
			src: `package util

func Add(a, b int) int { return a + b }

var msg = "select your plan"
`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertHints(t, extractStorage(parseSource(t, tt.src)), tt.want)
		})
	}
}

func TestIsSQLNoise(t *testing.T) {
	for _, w := range []string{"SELECT", "from", "information_schema"} {
		if !isSQLNoise(w) {
			t.Errorf("isSQLNoise(%q) = false", w)
		}
	}
	if isSQLNoise("orders") {
		t.Error("orders is a table name")
	}
}

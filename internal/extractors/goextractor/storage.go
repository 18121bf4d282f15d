package goextractor

import (
	"go/ast"
	"go/token"
	"regexp"
	"strconv"
	"strings"
)

var (
	reCreateTable = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?` + "`?" + `"?'?(\w+)`)
	reInsertInto  = regexp.MustCompile(`(?i)INSERT\s+INTO\s+` + "`?" + `"?'?(\w+)`)
	reUpdate      = regexp.MustCompile(`(?i)UPDATE\s+` + "`?" + `"?'?(\w+)\s+SET\b`)
	reDeleteFrom  = regexp.MustCompile(`(?i)DELETE\s+FROM\s+` + "`?" + `"?'?(\w+)`)
	reSelectFrom  = regexp.MustCompile(`(?i)\bSELECT\b[\s\S]+?\bFROM\s+` + "`?" + `"?'?(\w+)`)
	reAlterTable  = regexp.MustCompile(`(?i)ALTER\s+TABLE\s+` + "`?" + `"?'?(\w+)`)

	sqlPatterns = []*regexp.Regexp{reCreateTable, reAlterTable, reInsertInto, reUpdate, reDeleteFrom, reSelectFrom}
)

// storageDrivers maps import path fragments to storage hints.
var storageDrivers = []struct{ fragment, hint string }{
	{"database/sql", "database:sql"},
	{"jackc/pgx", "database:postgres"},
	{"lib/pq", "database:postgres"},
	{"go-sql-driver/mysql", "database:mysql"},
	{"mattn/go-sqlite3", "database:sqlite"},
	{"modernc.org/sqlite", "database:sqlite"},
	{"gorm.io/gorm", "database:gorm"},
	{"jmoiron/sqlx", "database:sqlx"},
	{"go.mongodb.org/mongo-driver", "database:mongo"},
	{"redis/go-redis", "database:redis"},
	{"neo4j/neo4j-go-driver", "database:neo4j"},
	{"qdrant/go-client", "database:qdrant"},
	{"aws-sdk-go-v2/service/dynamodb", "database:dynamo"},
}

// extractStorage returns storage hints for a Go file: database driver imports, SQL table
// references found in string literals, and S3 clients.
func extractStorage(f *ast.File) []string {
	var hints hintSet

	hasS3Import := false
	for _, imp := range f.Imports {
		p := strings.Trim(imp.Path.Value, `"`)
		for _, d := range storageDrivers {
			if strings.Contains(p, d.fragment) {
				hints.add(d.hint)
			}
		}
		if strings.Contains(p, "aws-sdk-go") && strings.HasSuffix(p, "/s3") {
			hasS3Import = true
		}
	}

	ast.Inspect(f, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.BasicLit:
			if node.Kind != token.STRING {
				return true
			}
			val, err := strconv.Unquote(node.Value)
			if err != nil {
				return true
			}
			for _, re := range sqlPatterns {
				for _, m := range re.FindAllStringSubmatch(val, -1) {
					if !isSQLNoise(m[1]) {
						hints.add("sql_table:" + strings.ToLower(m[1]))
					}
				}
			}

		case *ast.Field:
			if !hasS3Import {
				return true
			}
			typeName := typeExprToString(node.Type)
			if typeName == "s3.Client" || typeName == "s3.S3" {
				hints.add("s3_storage")
			}
		}
		return true
	})

	return hints.list
}

// isSQLNoise returns true for common SQL keywords that are not table names.
func isSQLNoise(name string) bool {
	switch strings.ToLower(name) {
	case "select", "from", "where", "set", "into", "values", "table",
		"index", "view", "trigger", "procedure", "function",
		"dual", "information_schema", "pg_catalog":
		return true
	}
	return false
}

package postgres

import _ "embed"

// Schema 项目表结构 DDL，由 cmd/bootstrap 执行，可重复执行
//
//go:embed schema.sql
var Schema string

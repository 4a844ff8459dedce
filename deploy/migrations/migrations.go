package migrations

import "embed"

// Files 保存部署记录库的建表脚本，按文件名顺序执行。
//
//go:embed 0*.sql
var Files embed.FS

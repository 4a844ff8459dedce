// Package deploys embeds the deployment records written by the contract
// deploy pipeline, one directory per network.
package deploys

import "embed"

// Files 暴露所有网络的部署记录。
//
//go:embed */*.json
var Files embed.FS

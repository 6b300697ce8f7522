// Package autoload initializes the global logger from LOG_* environment
// variables as a side effect of being imported.
//
//	import _ "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/pkg/logger/autoload"
package autoload

import (
	configx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/pkg/config"
	logx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}

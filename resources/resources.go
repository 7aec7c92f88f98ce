// Package resources embeds the default data tables shipped with the bot.
package resources

import "embed"

// Eval holds the default alias and wrapping tables under eval/.
//
//go:embed eval/*.yml
var Eval embed.FS

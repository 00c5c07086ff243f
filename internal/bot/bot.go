// Package bot defines the identity and policy records for registered trading bots.
package bot

import "time"

// Type enumerates the supported bot strategies. The engine treats these as
// opaque labels; only the owning management layer interprets them.
type Type string

const (
	Arbitrage  Type = "arbitrage"
	Sniper     Type = "sniper"
	FlashLoan  Type = "flash_loan"
	Triangular Type = "triangular"
	Custom     Type = "custom"
)

// SigningMode says where the bot's signing material lives.
type SigningMode string

const (
	ClientSide SigningMode = "client_side"
	ServerSide SigningMode = "server_side"
	Enclave    SigningMode = "enclave"
)

// Config is the read-only identity and policy for one bot. It is created by
// the bot management layer; the engine never mutates it.
type Config struct {
	ID          string
	OwnerID     string
	BotType     Type
	SigningMode SigningMode
	IsActive    bool
	IsPaused    bool
	Params      map[string]string // opaque strategy parameters
	CreatedAt   time.Time
}

// Runnable reports whether the engine may execute on behalf of this bot.
func (c *Config) Runnable() bool {
	return c != nil && c.IsActive && !c.IsPaused
}

// Package reagentbank implements the guild reagent banker NPC: players
// deposit stackable crafting materials into a storage pool shared by their
// guild, browse it by category and withdraw single stacks; guild leaders
// buy capacity.
package reagentbank

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/crystal-mush/reagentbank/pkg/asyncq"
	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/ledger"
	"github.com/crystal-mush/reagentbank/pkg/locale"
	"github.com/crystal-mush/reagentbank/pkg/scripts"
)

// ScriptName is the creature script name the banker registers under.
const ScriptName = "npc_reagent_banker"

// Outcomes a player is told about. Each maps to one localized message.
var (
	ErrNoGuild          = errors.New("reagentbank: player has no guild")
	ErrNothingToDeposit = errors.New("reagentbank: nothing to deposit")
	ErrNoStorage        = errors.New("reagentbank: guild has no storage")
	ErrBankFull         = errors.New("reagentbank: guild bank is full")
	ErrNoSpace          = errors.New("reagentbank: no space available")
	ErrNotLeader        = errors.New("reagentbank: player is not the guild leader")
	ErrNotEnoughMoney   = errors.New("reagentbank: not enough money")
	ErrItemNotFound     = errors.New("reagentbank: item template not found")
	ErrUnavailable      = errors.New("reagentbank: bank unavailable")
)

// Ledger is the guild balance store.
type Ledger interface {
	Usage(ctx context.Context, guild gamedb.GuildID) (ledger.Usage, error)
	Amount(ctx context.Context, guild gamedb.GuildID, item uint32) (uint32, error)
	Deposit(ctx context.Context, guild gamedb.GuildID, credits []ledger.Credit) error
	Withdraw(ctx context.Context, guild gamedb.GuildID, item, max uint32) (uint32, error)
	AddCapacity(ctx context.Context, guild gamedb.GuildID, increment uint32) (uint32, error)
	ListCategoryAsync(guild gamedb.GuildID, subclass gamedb.Subclass) *asyncq.Future[[]ledger.Entry]
}

// Guilds resolves a player's guild and its leader.
type Guilds interface {
	GuildOf(p *gamedb.Player) *gamedb.Guild
	IsGuildLeader(p *gamedb.Player) bool
}

// Saver persists a player after the bank changed its inventory or money.
type Saver interface {
	SavePlayer(p *gamedb.Player) error
}

// Config holds the tunables of the banker.
type Config struct {
	PageSize          int           `yaml:"page_size"`
	StorageCost       gamedb.Money  `yaml:"storage_cost"`
	StorageIncrement  uint32        `yaml:"storage_increment"`
	TextID            uint32        `yaml:"text_id"`
	ExplanationTextID uint32        `yaml:"explanation_text_id"`
	Timeout           time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the stock banker settings: 23 entries per page and
// 1000 storage units for 1000 gold.
func DefaultConfig() Config {
	return Config{
		PageSize:          23,
		StorageCost:       1000 * gamedb.Gold,
		StorageIncrement:  1000,
		TextID:            4259,
		ExplanationTextID: 90000001,
		Timeout:           5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.StorageCost <= 0 {
		c.StorageCost = d.StorageCost
	}
	if c.StorageIncrement == 0 {
		c.StorageIncrement = d.StorageIncrement
	}
	if c.TextID == 0 {
		c.TextID = d.TextID
	}
	if c.ExplanationTextID == 0 {
		c.ExplanationTextID = d.ExplanationTextID
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// Deps are the collaborators the banker works against. Saver and Metrics
// may be nil.
type Deps struct {
	Ledger  Ledger
	Guilds  Guilds
	Items   Templates
	Text    *locale.Bundle
	Saver   Saver
	Metrics *Metrics
	Log     *zap.Logger
	Config  Config
}

// Banker is the reagent banker creature script.
type Banker struct {
	deps Deps
	cfg  Config
	log  *zap.Logger
}

// New returns a banker. Zero config fields take their default.
func New(deps Deps) *Banker {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Banker{deps: deps, cfg: deps.Config.withDefaults(), log: log.Named("reagentbank")}
}

// Register creates a banker and adds it to reg under ScriptName.
func Register(reg *scripts.Registry, deps Deps) (*Banker, error) {
	b := New(deps)
	if err := reg.Register(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Name implements scripts.CreatureScript.
func (b *Banker) Name() string { return ScriptName }

// Config returns the effective configuration.
func (b *Banker) Config() Config { return b.cfg }

func (b *Banker) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.cfg.Timeout)
}

func (b *Banker) text(s scripts.Session, key string, args ...any) string {
	return b.deps.Text.Sprintf(s.Locale(), key, args...)
}

// tell sends the message belonging to outcome err.
func (b *Banker) tell(s scripts.Session, err error) {
	var key string
	var args []any
	switch {
	case errors.Is(err, ErrNoGuild):
		key = locale.BankNoGuild
	case errors.Is(err, ErrNothingToDeposit):
		key = locale.BankNothingToDeposit
	case errors.Is(err, ErrNoStorage):
		key = locale.BankNoStorage
	case errors.Is(err, ErrBankFull):
		key = locale.BankFull
	case errors.Is(err, ErrNoSpace):
		key = locale.BankNoSpace
	case errors.Is(err, ErrNotLeader):
		key = locale.BankNotLeader
	case errors.Is(err, ErrNotEnoughMoney):
		key = locale.BankNotEnoughGold
		args = []any{int64(b.cfg.StorageCost / gamedb.Gold)}
	case errors.Is(err, ErrItemNotFound):
		key = locale.BankItemUnknown
	case errors.Is(err, gamedb.ErrInventoryFull):
		key = locale.InventoryFull
	default:
		key = locale.BankUnavailable
	}
	s.SendSysMessage(b.text(s, key, args...))
}

func (b *Banker) save(p *gamedb.Player) {
	if b.deps.Saver == nil {
		return
	}
	if err := b.deps.Saver.SavePlayer(p); err != nil {
		b.log.Error("save player failed", zap.String("player", p.Name), zap.Error(err))
	}
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, ErrUnavailable) {
		return "error"
	}
	return "denied"
}

// Package locale renders player-facing text. Message catalogs are embedded
// YAML files, one per locale, loaded into an x/text catalog.
package locale

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every catalog is checked against and the fallback
// for unknown players' locales.
const BaseLocale = "de-DE"

// Message keys.
const (
	NPCGreeting    = "npc.greeting"
	NPCExplanation = "npc.explanation"

	MenuExplain    = "menu.explain"
	MenuDepositAll = "menu.deposit_all"
	MenuBuySpace   = "menu.buy_space"
	MenuPrevious   = "menu.previous"
	MenuNext       = "menu.next"
	MenuBack       = "menu.back"

	BankNothingToDeposit = "bank.nothing_to_deposit"
	BankNoStorage        = "bank.no_storage"
	BankFull             = "bank.full"
	BankDeposited        = "bank.deposited"
	BankNoSpace          = "bank.no_space"
	BankUnavailable      = "bank.unavailable"
	BankItemUnknown      = "bank.item_unknown"
	BankNotLeader        = "bank.not_leader"
	BankBoughtSpace      = "bank.bought_space"
	BankNotEnoughGold    = "bank.not_enough_gold"
	BankSummary          = "bank.summary"
	BankNoGuild          = "bank.no_guild"

	InventoryFull     = "inventory.full"
	InventoryReceived = "inventory.received"
)

//go:embed catalogs/*.yaml
var catalogFS embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds every loaded locale.
type Bundle struct {
	cat     *catalog.Builder
	tags    []language.Tag
	names   []string
	matcher language.Matcher
	base    language.Tag
}

// Load reads the embedded catalogs.
func Load() (*Bundle, error) {
	return LoadFS(catalogFS)
}

// MustLoad is Load for package initialization and tests.
func MustLoad() *Bundle {
	b, err := Load()
	if err != nil {
		panic(err)
	}
	return b
}

// LoadFS reads catalogs/*.yaml from fsys. Every locale must define the same
// keys as BaseLocale.
func LoadFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "catalogs/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	files := make(map[string]catalogFile, len(paths))
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var f catalogFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		f.Locale = strings.TrimSpace(f.Locale)
		if f.Locale == "" {
			return nil, fmt.Errorf("catalog %s: locale is required", path)
		}
		if _, dup := files[f.Locale]; dup {
			return nil, fmt.Errorf("catalog %s: locale %s defined twice", path, f.Locale)
		}
		files[f.Locale] = f
	}

	base, ok := files[BaseLocale]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}

	b := &Bundle{base: language.MustParse(BaseLocale)}
	b.cat = catalog.NewBuilder(catalog.Fallback(b.base))

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := files[name]
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", name, err)
		}
		for key := range base.Messages {
			if _, ok := f.Messages[key]; !ok {
				return nil, fmt.Errorf("catalog %s: missing key %s", name, key)
			}
		}
		for key, msg := range f.Messages {
			if err := b.cat.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("catalog %s: key %s: %w", name, key, err)
			}
		}
		b.tags = append(b.tags, tag)
		b.names = append(b.names, name)
	}
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

// Locales returns the loaded locale names, sorted.
func (b *Bundle) Locales() []string {
	return append([]string(nil), b.names...)
}

// Match returns the loaded locale name closest to locale, or BaseLocale.
func (b *Bundle) Match(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return BaseLocale
	}
	_, idx, conf := b.matcher.Match(tag)
	if conf == language.No {
		return BaseLocale
	}
	return b.names[idx]
}

// Printer returns a printer for the loaded locale closest to locale.
func (b *Bundle) Printer(locale string) *message.Printer {
	return message.NewPrinter(language.MustParse(b.Match(locale)), message.Catalog(b.cat))
}

// Sprintf is shorthand for Printer(locale).Sprintf(key, args...).
func (b *Bundle) Sprintf(locale, key string, args ...any) string {
	return b.Printer(locale).Sprintf(key, args...)
}

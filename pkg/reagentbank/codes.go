package reagentbank

import (
	"errors"
	"fmt"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
)

// Gossip action codes. Codes 0..15 select a trade-goods subclass bucket;
// codes above MaxActionCode are item entries to withdraw.
const (
	CodeDepositAll  uint32 = 16
	CodeMainMenu    uint32 = 17
	CodeExplanation uint32 = 18
	CodeBuyCapacity uint32 = 19

	MaxActionCode uint32 = 700
)

// ErrUnknownAction is returned by Decode for codes that select nothing.
var ErrUnknownAction = errors.New("reagentbank: unknown gossip action")

// Kind tags an Action.
type Kind int

const (
	KindMainMenu Kind = iota
	KindOpenCategory
	KindWithdraw
	KindDepositAll
	KindExplanation
	KindBuyCapacity
)

func (k Kind) String() string {
	switch k {
	case KindMainMenu:
		return "main_menu"
	case KindOpenCategory:
		return "open_category"
	case KindWithdraw:
		return "withdraw"
	case KindDepositAll:
		return "deposit_all"
	case KindExplanation:
		return "explanation"
	case KindBuyCapacity:
		return "buy_capacity"
	default:
		return "unknown"
	}
}

// Action is a decoded gossip selection. Subclass is set for
// KindOpenCategory, Item for KindWithdraw; Page is meaningful for both.
type Action struct {
	Kind     Kind
	Subclass gamedb.Subclass
	Item     uint32
	Page     uint32
}

// Decode turns the (code, page) pair echoed by the client into an Action.
func Decode(code, page uint32) (Action, error) {
	switch {
	case code > MaxActionCode:
		return Action{Kind: KindWithdraw, Item: code, Page: page}, nil
	case code <= uint32(gamedb.MaxTradeGoodsSubclass):
		return Action{Kind: KindOpenCategory, Subclass: gamedb.Subclass(code), Page: page}, nil
	case code == CodeDepositAll:
		return Action{Kind: KindDepositAll}, nil
	case code == CodeMainMenu:
		return Action{Kind: KindMainMenu}, nil
	case code == CodeExplanation:
		return Action{Kind: KindExplanation}, nil
	case code == CodeBuyCapacity:
		return Action{Kind: KindBuyCapacity}, nil
	}
	return Action{}, fmt.Errorf("code %d: %w", code, ErrUnknownAction)
}

// Encode returns the (code, page) pair a menu option carries for a.
func (a Action) Encode() (code, page uint32) {
	switch a.Kind {
	case KindOpenCategory:
		return uint32(a.Subclass), a.Page
	case KindWithdraw:
		return a.Item, a.Page
	case KindDepositAll:
		return CodeDepositAll, 0
	case KindExplanation:
		return CodeExplanation, 0
	case KindBuyCapacity:
		return CodeBuyCapacity, 0
	default:
		return CodeMainMenu, 0
	}
}

func (a Action) String() string {
	switch a.Kind {
	case KindOpenCategory:
		return fmt.Sprintf("%s(%d, page %d)", a.Kind, a.Subclass, a.Page)
	case KindWithdraw:
		return fmt.Sprintf("%s(%d, page %d)", a.Kind, a.Item, a.Page)
	default:
		return a.Kind.String()
	}
}

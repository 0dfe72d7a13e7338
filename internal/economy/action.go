package economy

import "fmt"

type Kind string

const (
	KindBuy      = Kind("buy")
	KindSell     = Kind("sell")
	KindBurn     = Kind("burn")
	KindSabotage = Kind("sabotage")
)

// Action is one of Buy, Sell, Burn or Sabotage. The set is closed: the
// unexported marker keeps other packages from adding variants.
type Action interface {
	Kind() Kind
	action()
}

type Buy struct {
	Resource Resource
	Amount   int
}

type Sell struct {
	Resource Resource
	Amount   int
}

type Burn struct {
	Resource Resource
	Amount   int
}

type Sabotage struct {
	Resource Resource
	Amount   int
	Target   string
}

func (Buy) Kind() Kind      { return KindBuy }
func (Sell) Kind() Kind     { return KindSell }
func (Burn) Kind() Kind     { return KindBurn }
func (Sabotage) Kind() Kind { return KindSabotage }

func (Buy) action()      {}
func (Sell) action()     {}
func (Burn) action()     {}
func (Sabotage) action() {}

// NewAction builds the variant named by kind. targetName is only used by sabotage.
func NewAction(kind Kind, resource Resource, amount int, targetName string) (Action, error) {
	switch kind {
	case KindBuy:
		return Buy{Resource: resource, Amount: amount}, nil
	case KindSell:
		return Sell{Resource: resource, Amount: amount}, nil
	case KindBurn:
		return Burn{Resource: resource, Amount: amount}, nil
	case KindSabotage:
		return Sabotage{Resource: resource, Amount: amount, Target: targetName}, nil
	}
	return nil, fmt.Errorf("unknown action kind %q", kind)
}

type Effect int

const (
	NoEffect Effect = iota
	Applied
)

// Result of applying an action. Text is empty when Effect is NoEffect.
type Result struct {
	Effect Effect
	Text   string
	// Target is the display name of the sabotaged player, if any.
	Target string
}

func (r Result) Applied() bool {
	return r.Effect == Applied
}

// Party is a player as seen by the engine.
type Party struct {
	Name   string
	Wallet *Wallet
}

// Lookup resolves a sabotage target by display name.
type Lookup func(name string) (Party, bool)

var noEffect = Result{Effect: NoEffect}

// MaxAmount bounds the quantity of a single action so costs and drift never
// overflow.
const MaxAmount = 1_000_000

func validAmount(n int) bool {
	return n > 0 && n <= MaxAmount
}

// Apply resolves act for actor against market. Economically invalid actions
// (insufficient tokens or holdings, unknown target, amounts outside
// [1, MaxAmount])
// leave every input untouched and return NoEffect.
func Apply(actor Party, act Action, market Market, lookup Lookup) Result {
	switch a := act.(type) {
	case Buy:
		return buy(actor, a)
	case Sell:
		return sell(actor, a)
	case Burn:
		return burn(actor, a, market)
	case Sabotage:
		return sabotage(actor, a, lookup)
	default:
		panic(fmt.Sprintf("economy: unhandled action %T", act))
	}
}

func buy(actor Party, a Buy) Result {
	if !a.Resource.Valid() || !validAmount(a.Amount) {
		return noEffect
	}
	w := actor.Wallet
	if a.Amount > w.Tokens/Price(a.Resource) {
		return noEffect
	}
	cost := Price(a.Resource) * a.Amount
	w.Tokens -= cost
	w.Holdings.Add(a.Resource, a.Amount)
	return Result{
		Effect: Applied,
		Text:   fmt.Sprintf("%s bought %d %s for %d tokens", actor.Name, a.Amount, a.Resource.Title(), cost),
	}
}

func sell(actor Party, a Sell) Result {
	if !a.Resource.Valid() || !validAmount(a.Amount) {
		return noEffect
	}
	w := actor.Wallet
	if w.Holdings.Get(a.Resource) < a.Amount {
		return noEffect
	}
	proceeds := SellProceeds(a.Resource, a.Amount)
	w.Tokens += proceeds
	w.Holdings.Add(a.Resource, -a.Amount)
	return Result{
		Effect: Applied,
		Text:   fmt.Sprintf("%s sold %d %s for %d tokens", actor.Name, a.Amount, a.Resource.Title(), proceeds),
	}
}

// SellProceeds is floor(80% of price*amount).
func SellProceeds(r Resource, amount int) int {
	return Price(r) * amount * 8 / 10
}

func burn(actor Party, a Burn, market Market) Result {
	if !a.Resource.Valid() || !validAmount(a.Amount) {
		return noEffect
	}
	w := actor.Wallet
	if w.Holdings.Get(a.Resource) < a.Amount {
		return noEffect
	}
	w.Holdings.Add(a.Resource, -a.Amount)
	market.Burn(a.Resource, a.Amount)
	return Result{
		Effect: Applied,
		Text:   fmt.Sprintf("%s burned %d %s to boost market price", actor.Name, a.Amount, a.Resource.Title()),
	}
}

func sabotage(actor Party, a Sabotage, lookup Lookup) Result {
	if !a.Resource.Valid() || !validAmount(a.Amount) || a.Target == "" || lookup == nil {
		return noEffect
	}
	w := actor.Wallet
	if w.Tokens < SabotageCost {
		return noEffect
	}
	target, ok := lookup(a.Target)
	if !ok || target.Wallet == nil {
		return noEffect
	}
	w.Tokens -= SabotageCost
	left := target.Wallet.Holdings.Get(a.Resource) - a.Amount
	if left < 0 {
		left = 0
	}
	target.Wallet.Holdings.Set(a.Resource, left)
	return Result{
		Effect: Applied,
		Text:   fmt.Sprintf("%s sabotaged %s's %s reserves", actor.Name, target.Name, a.Resource.Title()),
		Target: target.Name,
	}
}

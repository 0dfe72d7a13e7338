package economy

import (
	"fmt"
	"strings"
)

type Resource string

const (
	Gold  = Resource("gold")
	Water = Resource("water")
	Oil   = Resource("oil")
)

// Resources lists every tradable resource in display order.
var Resources = []Resource{Gold, Water, Oil}

var prices = map[Resource]int{
	Gold:  10,
	Water: 15,
	Oil:   25,
}

// Price returns the nominal unit price of r, or 0 for an unknown resource.
func Price(r Resource) int {
	return prices[r]
}

func (r Resource) Valid() bool {
	_, ok := prices[r]
	return ok
}

// Title is the capitalised name used in action texts ("Gold").
func (r Resource) Title() string {
	s := string(r)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func ParseResource(s string) (Resource, error) {
	r := Resource(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown resource %q", s)
	}
	return r, nil
}

// Holdings are per-resource quantities owned by a player.
type Holdings struct {
	Gold  int `json:"gold"`
	Water int `json:"water"`
	Oil   int `json:"oil"`
}

func (h Holdings) Get(r Resource) int {
	switch r {
	case Gold:
		return h.Gold
	case Water:
		return h.Water
	case Oil:
		return h.Oil
	}
	return 0
}

func (h *Holdings) Set(r Resource, n int) {
	switch r {
	case Gold:
		h.Gold = n
	case Water:
		h.Water = n
	case Oil:
		h.Oil = n
	}
}

func (h *Holdings) Add(r Resource, n int) {
	h.Set(r, h.Get(r)+n)
}

func (h Holdings) Total() int {
	return h.Gold + h.Water + h.Oil
}

const (
	StartingTokens = 1000
	SabotageCost   = 100
)

// StartingHoldings is what every player owns on joining or after a rematch reset.
var StartingHoldings = Holdings{Gold: 50, Water: 25, Oil: 10}

// Wallet is the economic state of one player. Tokens and holdings never go negative.
type Wallet struct {
	Tokens   int      `json:"tokens"`
	Holdings Holdings `json:"assets"`
}

func NewWallet() Wallet {
	return Wallet{Tokens: StartingTokens, Holdings: StartingHoldings}
}

// TotalAssets is the sum of all holdings, regardless of price.
func (w Wallet) TotalAssets() int {
	return w.Holdings.Total()
}

package model

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseChain(t *testing.T) {
	cases := map[string]Chain{
		"ethereum": ChainEthereum,
		" Base ":   ChainBase,
		"ARBITRUM": ChainArbitrum,
		"polygon":  ChainPolygon,
	}
	for input, want := range cases {
		got, err := ParseChain(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q = %s, want %s", input, got, want)
		}
	}

	_, err := ParseChain("solana")
	if !errors.Is(err, ErrUnsupportedChain) {
		t.Fatalf("expected unsupported chain, got %v", err)
	}
	var invalid *InputValidationError
	if !errors.As(err, &invalid) || invalid.Field != "chain" {
		t.Fatalf("expected chain validation error, got %#v", err)
	}
}

func TestChainIDs(t *testing.T) {
	for _, c := range SupportedChains() {
		if c.ChainID() == 0 {
			t.Fatalf("missing chain id for %s", c)
		}
	}
	if Chain("solana").ChainID() != 0 {
		t.Fatalf("unsupported chain should have no id")
	}
}

func TestUpstreamWrapping(t *testing.T) {
	if Upstream("lp 0x1", "reserves", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}

	cause := errors.New("rpc timeout")
	err := Upstream("lp 0x1", "reserves", cause)
	var upstream *UpstreamUnavailableError
	if !errors.As(err, &upstream) || upstream.Entity != "lp 0x1" {
		t.Fatalf("unexpected error %#v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost")
	}

	again := Upstream("lp 0x1", "price", err)
	if again != err {
		t.Fatalf("same entity should not be wrapped twice")
	}

	outer := Upstream("vault 0x2", "lp price", fmt.Errorf("price lp: %w", err))
	if !errors.As(outer, &upstream) || upstream.Entity != "vault 0x2" {
		t.Fatalf("outer entity not recorded: %v", outer)
	}
}

func TestTrancheActive(t *testing.T) {
	active := DepositTranche{Shares: NewTokenAmount("10", 18), DepositedAt: time.Unix(0, 0)}
	if !active.Active() {
		t.Fatalf("nonzero shares should be active")
	}
	withdrawn := DepositTranche{Shares: NewTokenAmount("000", 18)}
	if withdrawn.Active() {
		t.Fatalf("zero shares should be inactive")
	}
}

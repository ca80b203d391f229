package events

import (
	"strconv"

	"github.com/facemelt/engine/core/types"
)

const (
	TypeBondingCurveLaunched   = "curve.launched"
	TypeBondingCurveSwapped    = "curve.swapped"
	TypeBondingCurveGraduated  = "curve.graduated"
	TypePoolLaunched           = "pool.launched"
	TypeSwapped                = "pool.swapped"
	TypePositionOpened         = "position.opened"
	TypePositionClosed         = "position.closed"
	TypePositionLiquidated     = "position.liquidated"
)

// BondingCurveLaunched marks the creation of a primary-market curve for a
// newly minted token.
type BondingCurveLaunched struct {
	Mint        string
	TargetBase  string
	TargetTokens string
	Slope       string
}

func (BondingCurveLaunched) EventType() string { return TypeBondingCurveLaunched }

func (e BondingCurveLaunched) Event() *types.Event {
	return &types.Event{Type: TypeBondingCurveLaunched, Attributes: map[string]string{
		"mint":         e.Mint,
		"targetBase":   e.TargetBase,
		"targetTokens": e.TargetTokens,
		"slope":        e.Slope,
	}}
}

// BondingCurveSwapped records a single buy or sell against an active curve.
type BondingCurveSwapped struct {
	Mint             string
	IsBuy            bool
	In               string
	Out              string
	TokensSoldAfter  string
	BaseRaisedAfter  string
}

func (BondingCurveSwapped) EventType() string { return TypeBondingCurveSwapped }

func (e BondingCurveSwapped) Event() *types.Event {
	return &types.Event{Type: TypeBondingCurveSwapped, Attributes: map[string]string{
		"mint":            e.Mint,
		"isBuy":           strconv.FormatBool(e.IsBuy),
		"in":              e.In,
		"out":             e.Out,
		"tokensSoldAfter": e.TokensSoldAfter,
		"baseRaisedAfter": e.BaseRaisedAfter,
	}}
}

// BondingCurveGraduated marks the one-way transition from curve trading to
// live AMM trading.
type BondingCurveGraduated struct {
	Mint            string
	BaseRaisedFinal string
	LPTokens        string
}

func (BondingCurveGraduated) EventType() string { return TypeBondingCurveGraduated }

func (e BondingCurveGraduated) Event() *types.Event {
	return &types.Event{Type: TypeBondingCurveGraduated, Attributes: map[string]string{
		"mint":            e.Mint,
		"baseRaisedFinal": e.BaseRaisedFinal,
		"lpTokens":        e.LPTokens,
	}}
}

// PoolLaunched marks a direct, curve-free pool launch.
type PoolLaunched struct {
	Mint        string
	InitialBase string
}

func (PoolLaunched) EventType() string { return TypePoolLaunched }

func (e PoolLaunched) Event() *types.Event {
	return &types.Event{Type: TypePoolLaunched, Attributes: map[string]string{
		"mint":        e.Mint,
		"initialBase": e.InitialBase,
	}}
}

// Swapped records a live-phase spot trade.
type Swapped struct {
	Mint        string
	In          string
	Out         string
	InputIsBase bool
}

func (Swapped) EventType() string { return TypeSwapped }

func (e Swapped) Event() *types.Event {
	return &types.Event{Type: TypeSwapped, Attributes: map[string]string{
		"mint":        e.Mint,
		"in":          e.In,
		"out":         e.Out,
		"inputIsBase": strconv.FormatBool(e.InputIsBase),
	}}
}

// PositionOpened records a new leveraged position.
type PositionOpened struct {
	PositionID string
	IsLong     bool
	Collateral string
	Size       string
	DeltaK     string
}

func (PositionOpened) EventType() string { return TypePositionOpened }

func (e PositionOpened) Event() *types.Event {
	return &types.Event{Type: TypePositionOpened, Attributes: map[string]string{
		"positionId": e.PositionID,
		"isLong":     strconv.FormatBool(e.IsLong),
		"collateral": e.Collateral,
		"size":       e.Size,
		"deltaK":     e.DeltaK,
	}}
}

// PositionClosed records a voluntary close by the position's authority.
type PositionClosed struct {
	PositionID string
	Payout     string
}

func (PositionClosed) EventType() string { return TypePositionClosed }

func (e PositionClosed) Event() *types.Event {
	return &types.Event{Type: TypePositionClosed, Attributes: map[string]string{
		"positionId": e.PositionID,
		"payout":     e.Payout,
	}}
}

// PositionLiquidated records a permissionless liquidation.
type PositionLiquidated struct {
	PositionID string
	Liquidator string
	Reward     string
}

func (PositionLiquidated) EventType() string { return TypePositionLiquidated }

func (e PositionLiquidated) Event() *types.Event {
	return &types.Event{Type: TypePositionLiquidated, Attributes: map[string]string{
		"positionId": e.PositionID,
		"liquidator": e.Liquidator,
		"reward":     e.Reward,
	}}
}

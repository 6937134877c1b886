package guild

import (
	"errors"
	"strconv"
)

// ResultCode is the command result sent back to the client.
type ResultCode int

const (
	CodeSuccess          ResultCode = 0
	CodeInternal         ResultCode = 1
	CodeAlreadyInGuild   ResultCode = 2
	CodeNameInvalid      ResultCode = 6
	CodeNameExists       ResultCode = 7
	CodePermissions      ResultCode = 8
	CodePlayerNotInGuild ResultCode = 9
	CodePlayerNotFound   ResultCode = 11
	CodeRankTooHigh      ResultCode = 13
	CodeRankTooLow       ResultCode = 14
	CodeRanksLocked      ResultCode = 17
	CodeRankInUse        ResultCode = 18
	CodeWithdrawLimit    ResultCode = 25
	CodeNotEnoughMoney   ResultCode = 26
	CodeBankFull         ResultCode = 28
	CodeItemNotFound     ResultCode = 29
	CodeTooMuchMoney     ResultCode = 31
	CodeBankWrongTab     ResultCode = 32
	CodeCantStack        ResultCode = 40
	CodeWrongSlot        ResultCode = 41
	CodeInventoryFull    ResultCode = 42
	CodeNonEmptyBag      ResultCode = 43
	CodeCantTrade        ResultCode = 44
	CodeBoundItem        ResultCode = 45
	CodeLeaderLeave      ResultCode = 46
	CodeCommitFailed     ResultCode = 50
)

func (c ResultCode) String() string { return "guild_result_" + strconv.Itoa(int(c)) }

// Error classes. Every Error below matches exactly one class with errors.Is.
var (
	ErrPermission = errors.New("guild: permission denied")
	ErrQuota      = errors.New("guild: quota exhausted")
	ErrCapacity   = errors.New("guild: no capacity")
	ErrIntegrity  = errors.New("guild: item integrity")
	ErrNotFound   = errors.New("guild: not found")
	ErrInvalid    = errors.New("guild: invalid request")
	ErrInternal   = errors.New("guild: internal error")
)

// Error is a typed guild command failure.
type Error struct {
	Code  ResultCode
	class error
	msg   string
}

func newError(class error, code ResultCode, msg string) *Error {
	return &Error{Code: code, class: class, msg: "guild: " + msg}
}

func (e *Error) Error() string { return e.msg }

// Is matches the error's class.
func (e *Error) Is(target error) bool { return target == e.class }

var (
	ErrNoRights        = newError(ErrPermission, CodePermissions, "insufficient rights")
	ErrNotLeader       = newError(ErrPermission, CodePermissions, "only the guild master may do this")
	ErrRankTooHigh     = newError(ErrPermission, CodeRankTooHigh, "target rank is not below yours")
	ErrRankTooLow      = newError(ErrInvalid, CodeRankTooLow, "target is already at the lowest rank")
	ErrLeaderLeave     = newError(ErrInvalid, CodeLeaderLeave, "guild master cannot leave or be removed")
	ErrSelfTarget      = newError(ErrInvalid, CodeNameInvalid, "cannot target yourself")
	ErrSlotQuota       = newError(ErrQuota, CodeWithdrawLimit, "no withdrawals left on this tab today")
	ErrMoneyQuota      = newError(ErrQuota, CodeWithdrawLimit, "money withdraw limit reached today")
	ErrBankFull        = newError(ErrCapacity, CodeBankFull, "bank tab is full")
	ErrInventoryFull   = newError(ErrCapacity, CodeInventoryFull, "inventory is full")
	ErrCantStack       = newError(ErrCapacity, CodeCantStack, "items cannot be stacked")
	ErrWrongSlot       = newError(ErrCapacity, CodeWrongSlot, "invalid slot")
	ErrWrongBagType    = newError(ErrCapacity, CodeBankWrongTab, "bank tab not purchased")
	ErrTooManyRanks    = newError(ErrCapacity, CodeRanksLocked, "rank limit reached")
	ErrTooFewRanks     = newError(ErrCapacity, CodeRanksLocked, "cannot go below the minimum rank count")
	ErrTabLimit        = newError(ErrCapacity, CodeBankWrongTab, "no more bank tabs can be bought")
	ErrTooMuchMoney    = newError(ErrCapacity, CodeTooMuchMoney, "money cap reached")
	ErrNonEmptyBag     = newError(ErrIntegrity, CodeNonEmptyBag, "bag is not empty")
	ErrCantTrade       = newError(ErrIntegrity, CodeCantTrade, "item cannot be traded")
	ErrBoundItem       = newError(ErrIntegrity, CodeBoundItem, "soulbound items cannot be banked")
	ErrGuildNotFound   = newError(ErrNotFound, CodeInternal, "guild not found")
	ErrNotInGuild      = newError(ErrNotFound, CodePlayerNotInGuild, "player is not in a guild")
	ErrMemberNotFound  = newError(ErrNotFound, CodePlayerNotFound, "member not found")
	ErrRankNotFound    = newError(ErrNotFound, CodeInternal, "rank not found")
	ErrItemNotFound    = newError(ErrNotFound, CodeItemNotFound, "item not found")
	ErrNewsNotFound    = newError(ErrNotFound, CodeInternal, "news entry not found")
	ErrAlreadyInGuild  = newError(ErrInvalid, CodeAlreadyInGuild, "player already in a guild")
	ErrNameExists      = newError(ErrInvalid, CodeNameExists, "guild name taken")
	ErrNameInvalid     = newError(ErrInvalid, CodeNameInvalid, "invalid name")
	ErrSplitTooLarge   = newError(ErrInvalid, CodeItemNotFound, "split exceeds stack")
	ErrSameSlot        = newError(ErrInvalid, CodeWrongSlot, "source and destination are the same slot")
	ErrNoBankSide      = newError(ErrInvalid, CodeWrongSlot, "neither side is a bank tab")
	ErrGuildMasterRank = newError(ErrInvalid, CodeRanksLocked, "guild master rank cannot be changed this way")
	ErrRankInUse       = newError(ErrInvalid, CodeRankInUse, "rank still has members")
	ErrNotEnoughMoney  = newError(ErrInvalid, CodeNotEnoughMoney, "not enough money")
	ErrCloneFailed     = newError(ErrInternal, CodeItemNotFound, "could not split item")
	ErrCommitFailed    = newError(ErrInternal, CodeCommitFailed, "durable commit failed")
)

// CodeOf maps err to the result code sent to the client.
func CodeOf(err error) ResultCode {
	if err == nil {
		return CodeSuccess
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return CodeInternal
}

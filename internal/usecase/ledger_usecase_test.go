package usecase

import (
	"errors"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/itfintrack/itfintrack/internal/domain"
)

func (s *UseCaseTestSuite) createLedger(actor domain.Actor, name string) *domain.Ledger {
	ledger, err := s.ledgers.CreateLedger(s.ctx, actor, CreateLedgerRequest{Name: name, Type: domain.LedgerTypeEmployee})
	require.NoError(s.T(), err)
	return ledger
}

func (s *UseCaseTestSuite) addEntry(actor domain.Actor, ledgerID string, entryType domain.LedgerEntryType, amount string) *domain.LedgerEntry {
	entry, err := s.ledgers.AddEntry(s.ctx, actor, ledgerID, AddEntryRequest{
		Type:        entryType,
		Amount:      money(amount),
		Description: string(entryType),
	})
	require.NoError(s.T(), err)
	return entry
}

func (s *UseCaseTestSuite) TestLedgerBalanceFollowsEntries() {
	ledger := s.createLedger(manager, "Site visit")
	assert.Equal(s.T(), manager.UserID, ledger.OwnerID)

	s.addEntry(manager, ledger.ID, domain.LedgerEntryAdvance, "500.00")
	s.addEntry(manager, ledger.ID, domain.LedgerEntryExpense, "120.40")
	s.addEntry(manager, ledger.ID, domain.LedgerEntryExpense, "79.60")
	s.addEntry(manager, ledger.ID, domain.LedgerEntryReimbursement, "120.40")
	s.addEntry(manager, ledger.ID, domain.LedgerEntryReturn, "100.00")

	view, err := s.ledgers.GetLedger(s.ctx, manager, ledger.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "500.00", view.Summary.Advanced.StringFixed(2))
	assert.Equal(s.T(), "200.00", view.Summary.Spent.StringFixed(2))
	assert.Equal(s.T(), "200.00", view.Summary.Balance.StringFixed(2))
	assert.Equal(s.T(), "79.60", view.Summary.PendingReimbursement.StringFixed(2))

	recorded := map[string]int{}
	for _, entry := range s.auditFor(domain.ResourceLedger, ledger.ID) {
		if entry.Action == domain.AuditActionEntry {
			recorded[entry.Metadata["entry_type"]]++
		}
	}
	assert.Equal(s.T(), map[string]int{"advance": 1, "expense": 2, "reimbursement": 1, "return": 1}, recorded)
}

func (s *UseCaseTestSuite) TestLedgerEntriesDefaultToToday() {
	ledger := s.createLedger(accountant, "Petty cash")

	entry := s.addEntry(accountant, ledger.ID, domain.LedgerEntryAdvance, "10.005")
	assert.Equal(s.T(), date(2024, time.January, 31), entry.EntryDate)
	assert.Equal(s.T(), "10.01", entry.Amount.StringFixed(2))

	s.clock.set(date(2024, time.February, 3))
	s.addEntry(accountant, ledger.ID, domain.LedgerEntryExpense, "4.00")

	listed, err := s.ledgers.ListEntries(s.ctx, accountant, ledger.ID, domain.LedgerEntryFilter{})
	require.NoError(s.T(), err)
	require.Len(s.T(), listed, 2)
	assert.Equal(s.T(), domain.LedgerEntryExpense, listed[0].Type)

	advance := domain.LedgerEntryAdvance
	listed, err = s.ledgers.ListEntries(s.ctx, accountant, ledger.ID, domain.LedgerEntryFilter{Type: &advance})
	require.NoError(s.T(), err)
	require.Len(s.T(), listed, 1)
	assert.Equal(s.T(), entry.ID, listed[0].ID)

	bogus := domain.LedgerEntryType("transfer")
	_, err = s.ledgers.ListEntries(s.ctx, accountant, ledger.ID, domain.LedgerEntryFilter{Type: &bogus})
	assert.Equal(s.T(), domain.KindValidation, domain.KindOf(err))
}

func (s *UseCaseTestSuite) TestLedgerLinkedExpenseMustExist() {
	ledger := s.createLedger(accountant, "Travel")
	expense := s.createExpense("42.00", date(2024, time.January, 15))

	missing := "missing"
	_, err := s.ledgers.AddEntry(s.ctx, accountant, ledger.ID, AddEntryRequest{
		Type: domain.LedgerEntryExpense, Amount: money("42.00"), Description: "Taxi", LinkedExpenseID: &missing,
	})
	assert.True(s.T(), errors.Is(err, domain.ErrReferentialIntegrity))

	entry, err := s.ledgers.AddEntry(s.ctx, accountant, ledger.ID, AddEntryRequest{
		Type: domain.LedgerEntryExpense, Amount: money("42.00"), Description: "Taxi", LinkedExpenseID: &expense.ID,
	})
	require.NoError(s.T(), err)
	require.NotNil(s.T(), entry.LinkedExpenseID)
	assert.Equal(s.T(), expense.ID, *entry.LinkedExpenseID)

	empty := ""
	entry, err = s.ledgers.AddEntry(s.ctx, accountant, ledger.ID, AddEntryRequest{
		Type: domain.LedgerEntryExpense, Amount: money("3.00"), Description: "Coffee", LinkedExpenseID: &empty,
	})
	require.NoError(s.T(), err)
	assert.Nil(s.T(), entry.LinkedExpenseID)
}

func (s *UseCaseTestSuite) TestLedgerIsPrivateToItsOwner() {
	ledger := s.createLedger(viewer, "Conference")
	s.addEntry(viewer, ledger.ID, domain.LedgerEntryAdvance, "50.00")
	s.createLedger(manager, "Site visit")

	_, err := s.ledgers.GetLedger(s.ctx, manager, ledger.ID)
	assert.Equal(s.T(), domain.KindPermissionDenied, domain.KindOf(err))

	_, err = s.ledgers.AddEntry(s.ctx, manager, ledger.ID, AddEntryRequest{
		Type: domain.LedgerEntryExpense, Amount: money("5.00"), Description: "Snack",
	})
	assert.Equal(s.T(), domain.KindPermissionDenied, domain.KindOf(err))

	_, err = s.ledgers.ListEntries(s.ctx, manager, ledger.ID, domain.LedgerEntryFilter{})
	assert.Equal(s.T(), domain.KindPermissionDenied, domain.KindOf(err))

	err = s.ledgers.DeleteLedger(s.ctx, manager, ledger.ID)
	assert.Equal(s.T(), domain.KindPermissionDenied, domain.KindOf(err))

	mine, err := s.ledgers.ListLedgers(s.ctx, viewer)
	require.NoError(s.T(), err)
	require.Len(s.T(), mine, 1)
	assert.Equal(s.T(), ledger.ID, mine[0].ID)

	all, err := s.ledgers.ListLedgers(s.ctx, admin)
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 2)

	view, err := s.ledgers.GetLedger(s.ctx, admin, ledger.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "50.00", view.Summary.Balance.StringFixed(2))
}

func (s *UseCaseTestSuite) TestDeleteLedger() {
	ledger := s.createLedger(accountant, "Old trip")

	s.clock.set(date(2024, time.February, 1))
	require.NoError(s.T(), s.ledgers.DeleteLedger(s.ctx, accountant, ledger.ID))

	_, err := s.ledgers.GetLedger(s.ctx, accountant, ledger.ID)
	assert.True(s.T(), errors.Is(err, domain.ErrNotFound))

	_, err = s.ledgers.AddEntry(s.ctx, accountant, ledger.ID, AddEntryRequest{
		Type: domain.LedgerEntryAdvance, Amount: money("1.00"), Description: "late",
	})
	assert.True(s.T(), errors.Is(err, domain.ErrNotFound))

	entries := s.auditFor(domain.ResourceLedger, ledger.ID)
	require.Len(s.T(), entries, 2)
	assert.Equal(s.T(), domain.AuditActionDelete, entries[0].Action)

	ledgers, err := s.ledgers.ListLedgers(s.ctx, accountant)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), ledgers)
}

func (s *UseCaseTestSuite) TestCreateLedgerValidation() {
	_, err := s.ledgers.CreateLedger(s.ctx, accountant, CreateLedgerRequest{Name: " "})
	assert.Equal(s.T(), domain.KindValidation, domain.KindOf(err))

	_, err = s.ledgers.CreateLedger(s.ctx, accountant, CreateLedgerRequest{Name: "Trip", Type: "shared"})
	assert.Equal(s.T(), domain.KindValidation, domain.KindOf(err))

	_, err = s.ledgers.AddEntry(s.ctx, accountant, "missing", AddEntryRequest{
		Type: domain.LedgerEntryAdvance, Amount: money("1.00"), Description: "x",
	})
	assert.True(s.T(), errors.Is(err, domain.ErrNotFound))
}

func (s *UseCaseTestSuite) TestLedgerEntryRollsBackWhenAuditFails() {
	ledger := s.createLedger(accountant, "Travel")

	auditRepo := &mockAuditRepository{}
	auditRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.AuditEntry) bool {
		return e.ResourceID == ledger.ID && e.Action == domain.AuditActionEntry
	})).Return(errors.New("disk full")).Once()

	ledgers := NewLedgerUseCase(Deps{Store: auditOverrideStore{Store: s.store, audit: auditRepo}, Clock: s.clock})
	_, err := ledgers.AddEntry(s.ctx, accountant, ledger.ID, AddEntryRequest{
		Type: domain.LedgerEntryAdvance, Amount: money("25.00"), Description: "Float",
	})
	require.Error(s.T(), err)
	auditRepo.AssertExpectations(s.T())

	entries, err := s.ledgers.ListEntries(s.ctx, accountant, ledger.ID, domain.LedgerEntryFilter{})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), entries)
}

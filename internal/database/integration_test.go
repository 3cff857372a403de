package database_test

import (
	"sync"
	"testing"
	"time"

	"github.com/inmobiliaria/backoffice/internal/common/testutils"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB starts a PostgreSQL container, applies the migrations and connects to it.
func newTestDB(t *testing.T) *database.Manager {
	t.Helper()

	pc := testutils.StartPostgresContainer(t)
	cfg := database.Config{
		Host:     pc.Host,
		Port:     pc.Port,
		User:     pc.User,
		Password: pc.Password,
		DBName:   pc.Name,
		SSLMode:  "disable",
	}

	require.NoError(t, database.Migrate(cfg, false), "Setup: migrations should apply")
	require.NoError(t, database.Migrate(cfg, false), "Setup: applying migrations twice should be a no-op")

	db, err := database.New(t.Context(), cfg)
	require.NoError(t, err, "Setup: could not connect to the database")
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRepositories(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := t.Context()

	agent, err := db.CreateAgent(ctx, models.Agent{FirstName: "Laura", LastName: "Gómez", Email: "laura@example.com", IsActive: true})
	require.NoError(t, err, "CreateAgent should not fail")
	_, err = db.CreateAgent(ctx, models.Agent{FirstName: "Dup", LastName: "Dup", Email: "laura@example.com"})
	require.ErrorIs(t, err, database.ErrConflict, "duplicated email should conflict")

	customer, err := db.CreateCustomer(ctx, models.Customer{FirstName: "Juan", LastName: "Pérez", Document: "30111222"})
	require.NoError(t, err, "CreateCustomer should not fail")

	types, err := db.ListPropertyTypes(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, types, "reference property types should be seeded")
	statuses, err := db.ListPropertyStatuses(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, statuses, "reference property statuses should be seeded")

	property, err := db.CreateProperty(ctx, models.Property{
		Title: "Depto Palermo", TypeID: types[0].ID, StatusID: statuses[0].ID, AgentID: agent.ID,
		RentalPrice: 35000000,
	})
	require.NoError(t, err, "CreateProperty should not fail")
	assert.Equal(t, types[0].Name, property.TypeName)

	found, err := db.ListProperties(ctx, database.PropertyFilter{Search: "palermo"})
	require.NoError(t, err)
	assert.Len(t, found, 1, "search should be case insensitive")

	start := models.NewDate(2025, time.January, 1)
	contract, err := db.CreateContract(ctx, models.Contract{
		PropertyID: property.ID, CustomerID: customer.ID, AgentID: agent.ID,
		StartDate: start, EndDate: start.AddMonths(24), Amount: 35000000, Currency: "ARS",
		Frequency: models.Quarterly, IncreasePercentage: 12.5, IsActive: true, Status: models.ContractActive,
	})
	require.NoError(t, err, "CreateContract should not fail")
	assert.Equal(t, "Juan Pérez", contract.CustomerName)
	assert.InDelta(t, 12.5, contract.IncreasePercentage, 1e-9)
	assert.True(t, contract.NextIncreaseDate.IsZero(), "unset next increase date should round trip")

	live, err := db.ListContracts(ctx, database.ContractFilter{Live: true, Frequency: models.Quarterly})
	require.NoError(t, err)
	assert.Len(t, live, 1)

	inc, err := db.ApplyContractIncrease(ctx, models.ContractIncrease{
		ContractID: contract.ID, PreviousAmount: contract.Amount, NewAmount: 40000000,
		IncreasePercentage: 14.29, EffectiveDate: start.AddMonths(3),
	}, start.AddMonths(6))
	require.NoError(t, err, "ApplyContractIncrease should not fail")
	assert.NotZero(t, inc.ID)
	contract, err = db.GetContract(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(40000000), contract.Amount, "increase should update the contract amount")
	assert.Equal(t, start.AddMonths(6), contract.NextIncreaseDate)

	inv, err := db.CreateInvoice(ctx, models.Invoice{
		Date: start, DueDate: start.AddDays(30), CustomerID: customer.ID, ContractID: contract.ID,
		Status: models.InvoiceValidated,
		Items:  []models.InvoiceItem{{Concept: "Alquiler", Quantity: 1, PriceUnit: 40000000}},
	})
	require.NoError(t, err, "CreateInvoice should not fail")
	assert.Equal(t, models.Money(40000000), inv.TotalAmount)
	require.Len(t, inv.Items, 1)

	item, err := db.AddInvoiceItem(ctx, models.InvoiceItem{InvoiceID: inv.ID, Concept: "Expensas", Quantity: 2, PriceUnit: 500000})
	require.NoError(t, err, "AddInvoiceItem should not fail")
	inv, err = db.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(41000000), inv.TotalAmount, "total should follow the items")

	require.NoError(t, db.DeleteInvoiceItem(ctx, item.ID))
	require.ErrorIs(t, db.DeleteInvoiceItem(ctx, item.ID), database.ErrNotFound)

	_, err = db.AddInvoicePayment(ctx, models.Payment{InvoiceID: inv.ID, Date: start.AddDays(5), Amount: 10000000, Method: "Transferencia"})
	require.NoError(t, err, "AddInvoicePayment should not fail")

	open, err := db.ListOpenContractInvoices(ctx, start, start.AddDays(60))
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, agent.ID, open[0].AgentID)
	assert.Equal(t, models.Money(30000000), open[0].Balance())

	last, err := db.LastContractInvoiceDate(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, start, last)

	require.NoError(t, db.SetInvoiceNumber(ctx, inv.ID, "INV-2025-007"))
	seq, err := db.MaxInvoiceSequence(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 7, seq)
	seq, err = db.MaxInvoiceSequence(ctx, 2024)
	require.NoError(t, err)
	assert.Zero(t, seq)

	n := models.Notification{AgentID: agent.ID, Title: "t", Message: "m", Type: models.NotifyInvoiceOverdue,
		RelatedKind: models.RelatedInvoice, RelatedID: inv.ID}
	_, created, err := db.CreateNotificationIfAbsent(ctx, n, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, created, "first notification should be created")
	_, created, err = db.CreateNotificationIfAbsent(ctx, n, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.False(t, created, "duplicate within the window should be skipped")

	unread, err := db.UnreadCount(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
	changed, err := db.MarkAllNotificationsRead(ctx, agent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)

	prefs, err := db.GetNotificationPreference(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultNotificationPreference(agent.ID), prefs, "defaults without stored preferences")
	prefs.ReceiveRentIncrease = false
	require.NoError(t, db.SaveNotificationPreference(ctx, prefs))
	got, err := db.GetNotificationPreference(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, prefs, got)

	inserted, err := db.UpsertLocations(ctx, "Argentina", "Córdoba", []string{"Córdoba", "Villa María"})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	inserted, err = db.UpsertLocations(ctx, "Argentina", "Córdoba", []string{"Córdoba", "Río Cuarto"})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted, "existing cities should be kept")

	rows, total, err := db.AdminRows(ctx, database.AdminQuery{
		Columns: []string{"i.id", "i.number"}, From: "invoices i", Where: []string{"i.status = $1"},
		Args: []any{"validated"}, Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "INV-2025-007", rows[0][1])

	choices, err := db.AdminChoices(ctx, "SELECT DISTINCT status, status FROM invoices ORDER BY 1")
	require.NoError(t, err)
	assert.Equal(t, []database.AdminChoice{{Value: "validated", Label: "validated"}}, choices)

	require.ErrorIs(t, db.DeleteCustomer(ctx, customer.ID), database.ErrReferenced, "referenced customers cannot be deleted")
	require.NoError(t, db.DeleteInvoice(ctx, inv.ID))
	_, err = db.GetInvoice(ctx, inv.ID)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestAddInvoicePayment(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := t.Context()

	customer, err := db.CreateCustomer(ctx, models.Customer{FirstName: "Ana", LastName: "López", Document: "27333444"})
	require.NoError(t, err, "Setup: CreateCustomer should not fail")
	day := models.NewDate(2025, time.March, 1)
	newInvoice := func(status models.InvoiceStatus) models.Invoice {
		inv, err := db.CreateInvoice(ctx, models.Invoice{
			Date: day, DueDate: day.AddDays(30), CustomerID: customer.ID, Status: status,
			Items: []models.InvoiceItem{{Concept: "Alquiler", Quantity: 1, PriceUnit: 100000}},
		})
		require.NoError(t, err, "Setup: CreateInvoice should not fail")
		return inv
	}

	t.Run("Concurrent payments cannot exceed the balance", func(t *testing.T) {
		inv := newInvoice(models.InvoiceValidated)

		const payers = 5
		var wg sync.WaitGroup
		errs := make(chan error, payers)
		for range payers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := db.AddInvoicePayment(ctx, models.Payment{InvoiceID: inv.ID, Date: day, Amount: 60000, Method: "Efectivo"})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var ok int
		for err := range errs {
			if err == nil {
				ok++
				continue
			}
			require.ErrorIs(t, err, database.ErrInvalid, "rejected payments should be invalid")
		}
		assert.Equal(t, 1, ok, "only one payment should fit the balance")

		got, err := db.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Money(40000), got.Balance(), "balance should reflect a single payment")
	})

	t.Run("Error when the invoice is not open", func(t *testing.T) {
		inv := newInvoice(models.InvoiceDraft)

		_, err := db.AddInvoicePayment(ctx, models.Payment{InvoiceID: inv.ID, Date: day, Amount: 100, Method: "Efectivo"})
		require.ErrorIs(t, err, database.ErrInvalid, "payments on drafts should be rejected")
	})

	t.Run("Error when the invoice does not exist", func(t *testing.T) {
		_, err := db.AddInvoicePayment(ctx, models.Payment{InvoiceID: 424242, Date: day, Amount: 100, Method: "Efectivo"})
		require.ErrorIs(t, err, database.ErrNotFound, "payments on unknown invoices should be rejected")
	})
}

func TestOwnerReceiptsAndLabels(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := t.Context()

	agent, err := db.CreateAgent(ctx, models.Agent{FirstName: "Laura", LastName: "Gómez", Email: "laura@example.com", IsActive: true})
	require.NoError(t, err, "Setup: CreateAgent should not fail")
	owner, err := db.CreateCustomer(ctx, models.Customer{FirstName: "María", LastName: "Dueña", Document: "20111222", Email: "maria@example.com"})
	require.NoError(t, err, "Setup: CreateCustomer should not fail")
	tenant, err := db.CreateCustomer(ctx, models.Customer{FirstName: "Juan", LastName: "Pérez", Document: "30111222"})
	require.NoError(t, err, "Setup: CreateCustomer should not fail")
	types, err := db.ListPropertyTypes(ctx)
	require.NoError(t, err)
	statuses, err := db.ListPropertyStatuses(ctx)
	require.NoError(t, err)

	property, err := db.CreateProperty(ctx, models.Property{
		Title: "Depto Palermo", TypeID: types[0].ID, StatusID: statuses[0].ID, AgentID: agent.ID, OwnerID: owner.ID,
	})
	require.NoError(t, err, "CreateProperty should not fail")
	assert.Equal(t, owner.ID, property.OwnerID, "owner should round trip")
	assert.Equal(t, "María Dueña", property.OwnerName, "owner name should be joined")

	// Features and tags
	pool, err := db.CreateFeature(ctx, models.Feature{Name: "Pileta"})
	require.NoError(t, err, "CreateFeature should not fail")
	_, err = db.CreateFeature(ctx, models.Feature{Name: "Pileta"})
	require.ErrorIs(t, err, database.ErrConflict, "duplicated feature names should conflict")
	tag, err := db.CreateTag(ctx, models.Tag{Name: "Destacada"})
	require.NoError(t, err, "CreateTag should not fail")
	assert.Equal(t, models.DefaultTagColor, tag.Color, "tags should get the default color")

	require.NoError(t, db.SetPropertyFeatures(ctx, property.ID, []int64{pool.ID, pool.ID}), "duplicated ids should be ignored")
	require.NoError(t, db.SetPropertyTags(ctx, property.ID, []int64{tag.ID}))
	require.ErrorIs(t, db.SetPropertyFeatures(ctx, property.ID, []int64{424242}), database.ErrReferenced, "unknown features should be rejected")
	require.ErrorIs(t, db.SetPropertyTags(ctx, 424242, nil), database.ErrNotFound, "unknown properties should be rejected")

	property, err = db.GetProperty(ctx, property.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Feature{pool}, property.Features, "features should be attached")
	assert.Equal(t, []models.Tag{tag}, property.Tags, "tags should be attached")

	require.NoError(t, db.DeleteTag(ctx, tag.ID), "DeleteTag should not fail")
	property, err = db.GetProperty(ctx, property.ID)
	require.NoError(t, err)
	assert.Empty(t, property.Tags, "deleted tags should be detached")

	// Owner receipts
	day := models.NewDate(2025, time.March, 1)
	contract, err := db.CreateContract(ctx, models.Contract{
		PropertyID: property.ID, CustomerID: tenant.ID, AgentID: agent.ID,
		StartDate: day, EndDate: day.AddMonths(24), Amount: 3500000, Currency: "ARS",
		Frequency: models.Quarterly, IsActive: true, Status: models.ContractActive, OwnerDiscountPercentage: 7.5,
	})
	require.NoError(t, err, "CreateContract should not fail")
	assert.InDelta(t, 7.5, contract.OwnerDiscountPercentage, 1e-9, "owner discount should round trip")

	inv, err := db.CreateInvoice(ctx, models.Invoice{
		Number: "INV-2025-001", Date: day, DueDate: day.AddDays(30), CustomerID: tenant.ID, ContractID: contract.ID,
		Status: models.InvoiceValidated,
		Items:  []models.InvoiceItem{{Concept: "Alquiler", Quantity: 1, PriceUnit: 3500000}},
	})
	require.NoError(t, err, "Setup: CreateInvoice should not fail")

	discount, net := models.OwnerSettlement(inv.TotalAmount, contract.OwnerDiscountPercentage)
	receipt, err := db.CreateOwnerReceipt(ctx, models.OwnerReceipt{
		Number: "REC-2025-0003", InvoiceID: inv.ID, EmailSentTo: owner.Email,
		GrossAmount: inv.TotalAmount, DiscountPercentage: 7.5, DiscountAmount: discount, NetAmount: net,
		Status: models.ReceiptGenerated,
	})
	require.NoError(t, err, "CreateOwnerReceipt should not fail")
	assert.Equal(t, "INV-2025-001", receipt.InvoiceNumber, "invoice number should be joined")
	assert.Equal(t, models.Money(3237500), receipt.NetAmount)
	assert.Nil(t, receipt.SentAt, "new receipts are not sent")

	_, err = db.CreateOwnerReceipt(ctx, models.OwnerReceipt{Number: "REC-2025-0003", InvoiceID: inv.ID,
		GrossAmount: 1, Status: models.ReceiptGenerated})
	require.ErrorIs(t, err, database.ErrConflict, "duplicated receipt numbers should conflict")

	seq, err := db.MaxReceiptSequence(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 3, seq)
	seq, err = db.MaxReceiptSequence(ctx, 2024)
	require.NoError(t, err)
	assert.Zero(t, seq)

	require.NoError(t, db.SetOwnerReceiptStatus(ctx, receipt.ID, models.ReceiptFailed, "smtp down", time.Now()))
	got, err := db.GetOwnerReceipt(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptFailed, got.Status)
	assert.Equal(t, "smtp down", got.ErrorMessage)
	assert.Nil(t, got.SentAt, "failed receipts have no delivery time")

	require.NoError(t, db.SetOwnerReceiptStatus(ctx, receipt.ID, models.ReceiptSent, "", time.Now()))
	got, err = db.GetOwnerReceipt(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptSent, got.Status)
	assert.NotNil(t, got.SentAt, "sent receipts record their delivery time")
	require.ErrorIs(t, db.SetOwnerReceiptStatus(ctx, 424242, models.ReceiptSent, "", time.Now()), database.ErrNotFound)

	receipts, err := db.ListOwnerReceipts(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	all, err := db.ListOwnerReceipts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, db.DeleteCustomer(ctx, owner.ID), "owners without contracts can be deleted")
	property, err = db.GetProperty(ctx, property.ID)
	require.NoError(t, err)
	assert.Zero(t, property.OwnerID, "deleting the owner should unlink the property")
}

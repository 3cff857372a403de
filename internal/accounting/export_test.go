package accounting

// Settlement exposes the balance based trigger selection for tests.
var Settlement = settlement

package handlers

// StatusOf exposes the error to status mapping for tests.
var StatusOf = statusOf

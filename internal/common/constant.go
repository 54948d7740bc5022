package common

// SessionCookieName is the cookie that carries the admin session token.
const SessionCookieName = "admin_session"

// MinPasswordLength is the shortest (trimmed) password accepted by the
// change-password flow.
const MinPasswordLength = 8

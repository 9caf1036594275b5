// Package schema detects which business domain a record set belongs to
// and maps heterogeneous column names onto canonical field names. The
// alias tables are deliberately declarative: adding support for a new
// naming convention means adding a string to a list, not code.
package schema

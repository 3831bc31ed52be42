// Package logging is the leveled wrapper over the standard logger used by
// every tubeshelf package.
//
// Lines carry a bracketed level prefix ([DEBUG], [INFO], [WARN], [ERROR],
// [FATAL]). The level is seeded from LOG_LEVEL, or forced to debug by a truthy
// DEBUG, and startup replaces it with SetLevel once configuration is loaded.
// Warnings are reserved for conditions the server works around, such as a
// skipped rename or an unreadable sidecar.
package logging

// SPDX-License-Identifier: MPL-2.0

// Package watch re-provisions apps whose fragment files change on disk.
//
// A Watcher registers every directory under apps/ with fsnotify and matches
// events against apps/*/fragments/<prefix>-init-fragment.*. Events inside the
// debounce window are coalesced, so a burst of editor writes yields one
// callback carrying the affected app names.
package watch

// Package domain defines the core business entities of the learning-progress
// engine: vocabulary items, per-user learning progress, answer events, and
// study sessions. Entities validate themselves; all state transitions on
// LearningProgress happen through the srs subpackage.
package domain

// Package models defines the core domain models for folkout.
//
// # Groups and members
//
// Every member belongs to exactly one Group. Groups are created implicitly
// when no existing group has spare capacity and are never deleted; all other
// records are owned by a group and disappear when their member does.
//
// # Votes
//
// The vote subsystem is made of:
//   - Proposal: a time-boxed expulsion vote, Open until resolved
//   - Ballot: one member's current yes/no choice on an open Proposal
//   - HistoryEntry: the immutable outcome written when a Proposal resolves
//   - VoteComment: a remark attached to a Proposal
//   - RepresentativeBallot: one member's endorsement of a candidate
//
// The group representative is not stored. It is derived from
// RepresentativeBallots on every read (see Candidate).
//
// # Conventions
//
//  1. Identifiers: members, groups, tags and posts use database integer IDs;
//     proposals and vote comments use UUID strings.
//  2. Times are Unix seconds, like every CreatedAt field.
//  3. Models carry no transport tags; the service layer converts them.
package models

// Package invite adds candidates to a target group.
//
// Inviter performs the invitation of one candidate: resolving a phone-only
// candidate to a platform account, adding it as a contact and inviting it.
// Job drives an Inviter over a whole candidate list in the background:
// candidates are processed in fixed-size concurrent batches, every platform
// call goes through a RetryPolicy, and a pacer keeps a randomized delay
// between consecutive invitations. Jobs are cancellable between candidates
// and between retry attempts but never abort a platform call in flight.
package invite

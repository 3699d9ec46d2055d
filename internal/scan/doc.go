// Package scan finds members of source groups who are eligible to be
// invited into a target group.
//
// Source groups are read concurrently with a bounded errgroup. A group whose
// member list is hidden or incomplete is supplemented from its message
// history. Eligibility excludes current target members, previously invited
// members, bots, deleted accounts and, optionally, members who have not been
// active recently. Results are merged in the order the caller listed the
// source groups.
package scan

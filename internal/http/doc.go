// Package http provides HTTP handlers and middleware for the exam timetable API.
//
// Callers are identified by the X-User-ID and X-User-Role headers set by the
// gateway in front of the service; RequirePrincipal turns them into an
// application.Principal. The router exposes the following endpoints:
//   - POST /exams/conflicts: checks a candidate exam against the timetable.
//     Body: {"courseCode","courseName","date","time","venue","duration","excludeId"}.
//     Response: {"hasConflicts","conflicts":[...],"summary":{"total","errors","warnings"}}.
//   - GET /exams/conflicts/report?date=YYYY-MM-DD: lists every conflicting pair of
//     upcoming exams, optionally restricted to one date.
//   - POST /sync: reconciles a batch of offline changes. Body:
//     {"changes":[{"id","type","action","data","timestamp"}],"deviceId","lastSync"}.
//     Per-change failures are reported in the 200 response rather than failing
//     the request.
//   - GET /sync/pending: lists the caller's changes awaiting resolution.
//   - POST /sync/resolve: resolves a pending change. Body:
//     {"changeId","resolution":"accept|modify|reject","modifiedData"}.
//   - GET /sync/snapshot?lastSync=RFC3339: returns a versioned snapshot of the
//     data visible to the caller.
//   - GET /healthz: reports database reachability without authentication.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http

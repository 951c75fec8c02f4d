// Package http exposes the lab inventory JSON API over net/http.
//
// The router serves the following endpoints, all under /api:
//   - GET /reservations?equipment_id&start_date&end_date, POST /reservations,
//     GET/PUT/DELETE /reservations/{id}: equipment bookings exchanging the
//     `reservationDTO` payload defined in reservation_handler.go. Creating or moving a
//     booking onto days already held by another non-cancelled booking of the same
//     equipment answers 409 with the conflict message.
//   - GET /equipment?search&category&status&location, POST /equipment,
//     GET/PUT/DELETE /equipment/{id}: the equipment catalog exchanging the flat
//     `equipmentDTO` payload (equipment columns plus its location fields) defined in
//     equipment_handler.go.
//   - GET /locations, POST /locations, DELETE /locations/{id}: storage locations.
//
// GET /healthz reports storage reachability outside the /api prefix.
//
// Errors are returned as {"error": "..."}; validation failures add a "fields" map
// keyed by JSON field name. Deletes answer {"success": true}.
package http

// Command modera is the shop backend binary.
//
//	modera serve             # HTTP API (and gRPC health when GRPC_PORT is set)
//	modera migrate           # SQL migrations or Mongo indexes, then counter sync
//	modera migrate:rollback  # SQL only
//	modera migrate:status    # SQL only
//	modera seed              # sample catalog into an empty store
//	modera route:list
//	modera images:fix --from http://localhost:4000 --to https://shop.example.com
//
// Configuration comes from config/app.json, .env and the environment.
package main

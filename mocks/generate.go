package mocks

//go:generate mockgen -destination=./mock_fetcher.go -package=mocks github.com/rxtech-lab/argo-core/internal/stream Fetcher
//go:generate mockgen -destination=./mock_stream.go -package=mocks github.com/rxtech-lab/argo-core/internal/stream Stream
//go:generate mockgen -destination=./mock_venue.go -package=mocks github.com/rxtech-lab/argo-core/internal/broker Venue
//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/rxtech-lab/argo-core/internal/broker Broker
//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-core/internal/strategy Strategy
//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/rxtech-lab/argo-core/internal/task Store
//go:generate mockgen -destination=./mock_runner.go -package=mocks github.com/rxtech-lab/argo-core/internal/task Runner

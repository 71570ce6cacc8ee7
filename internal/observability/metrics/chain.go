// Package metrics provides Prometheus instrumentation for elkstaking.
package metrics

import "time"

// Transaction records an executed transaction.
func Transaction(method, status string, d time.Duration) {
	if !enabled {
		return
	}
	transactionsTotal.WithLabelValues(method, status).Inc()
	transactionTime.WithLabelValues(method).Observe(d.Seconds())
}

// BlockMined records a newly mined block.
func BlockMined(number uint64) {
	if !enabled {
		return
	}
	blocksMinedTotal.Inc()
	chainHeadNumber.Set(float64(number))
}

// TimeOffset records the current chain clock offset.
func TimeOffset(seconds int64) {
	if !enabled {
		return
	}
	chainTimeOffset.Set(float64(seconds))
}

// ContractDeploy records a contract deployment.
func ContractDeploy(kind, status string) {
	if !enabled {
		return
	}
	contractDeployTotal.WithLabelValues(kind, status).Inc()
}

// TokenTransfer records a token transfer.
func TokenTransfer(status string) {
	if !enabled {
		return
	}
	tokenTransferTotal.WithLabelValues(status).Inc()
}

// VaultOperation records a vault operation.
func VaultOperation(operation, status string) {
	if !enabled {
		return
	}
	vaultOperationsTotal.WithLabelValues(operation, status).Inc()
}

package monitor

import "time"

type Status struct {
	PostgreSQL bool      `json:"postgresql"`
	Redis      bool      `json:"redis"`
	RabbitMQ   bool      `json:"rabbitmq"`
	LastCheck  time.Time `json:"last_check"`
}

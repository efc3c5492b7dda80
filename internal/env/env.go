package env

import "github.com/pikicariks/rain-detection-system/internal/config"

var Cfg *config.Config

package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// Supported CPU models.
const (
	CPU8086 = "8086"
	CPU8088 = "8088"
)

// TimingConfig holds base clock counts for the supported instruction forms.
// Values are taken from the Intel 8086 family user's manual and exclude
// effective address calculation, which is added separately.
type TimingConfig struct {
	// CPU selects the bus model: "8086" (16-bit bus, odd-address word
	// penalty) or "8088" (8-bit bus, every word transfer penalized).
	CPU string `json:"cpu"`

	// WordTransferPenalty is the extra cost of a penalized word transfer.
	// Default: 4 clocks.
	WordTransferPenalty uint64 `json:"word_transfer_penalty"`

	MovRegReg uint64 `json:"mov_reg_reg"` // Default: 2
	MovRegMem uint64 `json:"mov_reg_mem"` // Default: 8 + EA
	MovMemReg uint64 `json:"mov_mem_reg"` // Default: 9 + EA
	MovRegImm uint64 `json:"mov_reg_imm"` // Default: 4
	MovMemImm uint64 `json:"mov_mem_imm"` // Default: 10 + EA
	MovAccMem uint64 `json:"mov_acc_mem"` // Default: 10, both directions

	ArithRegReg uint64 `json:"arith_reg_reg"` // Default: 3
	ArithRegMem uint64 `json:"arith_reg_mem"` // Default: 9 + EA
	ArithMemReg uint64 `json:"arith_mem_reg"` // Default: 16 + EA
	ArithRegImm uint64 `json:"arith_reg_imm"` // Default: 4
	ArithMemImm uint64 `json:"arith_mem_imm"` // Default: 17 + EA
	ArithAccImm uint64 `json:"arith_acc_imm"` // Default: 4

	// CMP never writes memory, so its memory forms are cheaper.
	CmpMemReg uint64 `json:"cmp_mem_reg"` // Default: 9 + EA
	CmpMemImm uint64 `json:"cmp_mem_imm"` // Default: 10 + EA

	JumpTaken      uint64 `json:"jump_taken"`       // Default: 16
	JumpNotTaken   uint64 `json:"jump_not_taken"`   // Default: 4
	LoopTaken      uint64 `json:"loop_taken"`       // Default: 17
	LoopNotTaken   uint64 `json:"loop_not_taken"`   // Default: 5
	LoopzTaken     uint64 `json:"loopz_taken"`      // Default: 18
	LoopzNotTaken  uint64 `json:"loopz_not_taken"`  // Default: 6
	LoopnzTaken    uint64 `json:"loopnz_taken"`     // Default: 19
	LoopnzNotTaken uint64 `json:"loopnz_not_taken"` // Default: 5
	JcxzTaken      uint64 `json:"jcxz_taken"`       // Default: 18
	JcxzNotTaken   uint64 `json:"jcxz_not_taken"`   // Default: 6
}

// DefaultTimingConfig returns a TimingConfig with 8086 manual values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		CPU:                 CPU8086,
		WordTransferPenalty: 4,
		MovRegReg:           2,
		MovRegMem:           8,
		MovMemReg:           9,
		MovRegImm:           4,
		MovMemImm:           10,
		MovAccMem:           10,
		ArithRegReg:         3,
		ArithRegMem:         9,
		ArithMemReg:         16,
		ArithRegImm:         4,
		ArithMemImm:         17,
		ArithAccImm:         4,
		CmpMemReg:           9,
		CmpMemImm:           10,
		JumpTaken:           16,
		JumpNotTaken:        4,
		LoopTaken:           17,
		LoopNotTaken:        5,
		LoopzTaken:          18,
		LoopzNotTaken:       6,
		LoopnzTaken:         19,
		LoopnzNotTaken:      5,
		JcxzTaken:           18,
		JcxzNotTaken:        6,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks the CPU model and that every non-branch base cost is > 0.
func (c *TimingConfig) Validate() error {
	if c.CPU != CPU8086 && c.CPU != CPU8088 {
		return fmt.Errorf("cpu must be %q or %q, got %q", CPU8086, CPU8088, c.CPU)
	}

	costs := map[string]uint64{
		"mov_reg_reg":   c.MovRegReg,
		"mov_reg_mem":   c.MovRegMem,
		"mov_mem_reg":   c.MovMemReg,
		"mov_reg_imm":   c.MovRegImm,
		"mov_mem_imm":   c.MovMemImm,
		"mov_acc_mem":   c.MovAccMem,
		"arith_reg_reg": c.ArithRegReg,
		"arith_reg_mem": c.ArithRegMem,
		"arith_mem_reg": c.ArithMemReg,
		"arith_reg_imm": c.ArithRegImm,
		"arith_mem_imm": c.ArithMemImm,
		"arith_acc_imm": c.ArithAccImm,
		"cmp_mem_reg":   c.CmpMemReg,
		"cmp_mem_imm":   c.CmpMemImm,
	}
	for name, v := range costs {
		if v == 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}

	if c.JumpTaken < c.JumpNotTaken {
		return fmt.Errorf("jump_taken must be >= jump_not_taken")
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}

package debugger

import (
	"debug/elf"
	"fmt"
)

// CheckExecutable reports an error unless `path` is an ELF executable for RISC-V.
func CheckExecutable(path string) error {
	f, err := elf.Open(path)
	if err != nil {
		return fmt.Errorf("'%s' is not an ELF file: %w", path, err)
	}
	defer f.Close()

	h := f.FileHeader
	if h.Machine != elf.EM_RISCV {
		return fmt.Errorf("'%s' is built for %s, not for RISC-V", path, h.Machine)
	}
	if h.Type != elf.ET_EXEC {
		return fmt.Errorf("'%s' is not an executable but %s", path, h.Type)
	}
	return nil
}
